package utils

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"
)

var CountryCode = "US"

var validate = validator.New()

// ValidateStruct runs go-playground/validator tags on a request struct.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func IsValidEmail(email string) bool {
	pattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	regex := regexp.MustCompile(pattern)
	return regex.MatchString(email)
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err
	}
	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}
	return nil
}

var docIDCounter uint32

func init() {
	var seed [4]byte
	if _, err := rand.Read(seed[:]); err == nil {
		docIDCounter = binary.BigEndian.Uint32(seed[:])
	}
}

// NewDocumentID returns a 24-char hex id: 4-byte unix timestamp, 5 random
// bytes, 3-byte counter. Local ids must be assigned before the remote write
// so the remote record can carry them as external_id.
func NewDocumentID() string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[0:4], uint32(time.Now().Unix()))
	if _, err := rand.Read(b[4:9]); err != nil {
		binary.BigEndian.PutUint32(b[4:8], uint32(time.Now().UnixNano()))
	}
	n := atomic.AddUint32(&docIDCounter, 1)
	b[9] = byte(n >> 16)
	b[10] = byte(n >> 8)
	b[11] = byte(n)
	return hex.EncodeToString(b[:])
}

var docIDPattern = regexp.MustCompile(`^[0-9a-f]{24}$`)

func IsDocumentID(s string) bool {
	return docIDPattern.MatchString(strings.TrimSpace(s))
}
