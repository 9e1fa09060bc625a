package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mmdatafocus/nowmirror_backend/config"
	"github.com/mmdatafocus/nowmirror_backend/models"
	"github.com/mmdatafocus/nowmirror_backend/nowsync"
)

// mirror-repair re-links orphaned remote records into the local mirror after
// a LOCAL_FAILED dual-write. It authenticates as the service account
// (SN_SERVICE_USERNAME / SN_SERVICE_PASSWORD) and repairs one record per run:
//
//	mirror-repair -entity quote -sys-id <sys_id>
func main() {
	entity := flag.String("entity", "", "entity name (account, contact, quote, ...)")
	sysID := flag.String("sys-id", "", "remote sys_id of the orphaned record")
	timeout := flag.Duration("timeout", 60*time.Second, "overall run timeout")
	flag.Parse()

	logger := config.GetLogger()

	spec, ok := nowsync.Registry[*entity]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown entity %q\n", *entity)
		flag.Usage()
		os.Exit(2)
	}
	if *sysID == "" {
		fmt.Fprintln(os.Stderr, "-sys-id is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	username := os.Getenv("SN_SERVICE_USERNAME")
	password := os.Getenv("SN_SERVICE_PASSWORD")
	if username == "" || password == "" {
		logger.WithFields(logrus.Fields{"field": "mirror-repair"}).Fatal("SN_SERVICE_USERNAME and SN_SERVICE_PASSWORD are required")
	}
	tok, err := nowsync.PasswordGrant(ctx, username, password)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "mirror-repair"}).Fatal("service account login failed: " + err.Error())
	}
	cred := nowsync.Credential{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}

	remote := nowsync.NewTableClient(config.ServiceNowBaseURL(), config.ServiceNowTimeout())
	store := models.NewMirrorStore(db)
	events := models.NewEventRecorder(db, logger)
	synchronizer := nowsync.NewSynchronizer(remote, store, events, logger)

	doc, err := synchronizer.Relink(ctx, spec, *sysID, cred)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"field":  "mirror-repair",
			"entity": spec.Name,
			"sys_id": *sysID,
		}).Fatal("relink failed: " + err.Error())
	}

	out, _ := json.MarshalIndent(doc, "", "  ")
	fmt.Println(string(out))
	logger.WithFields(logrus.Fields{
		"field":    "mirror-repair",
		"entity":   spec.Name,
		"sys_id":   *sysID,
		"local_id": doc.LocalID(),
	}).Info("relinked")
}
