package models

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

type PageInfo struct {
	StartCursor string `json:"startCursor"`
	EndCursor   string `json:"endCursor"`
	HasNextPage *bool  `json:"hasNextPage,omitempty"`
}

func DecodeCursor(cursor *string) (string, error) {
	decodedCursor := ""
	if cursor != nil {
		b, err := base64.StdEncoding.DecodeString(*cursor)
		if err != nil {
			return decodedCursor, err
		}
		decodedCursor = string(b)
	}
	return decodedCursor, nil
}

func EncodeCursor(cursor string) string {
	return base64.StdEncoding.EncodeToString([]byte(cursor))
}

func EncodeCompositeCursor(collection string, id int) string {
	cursor := fmt.Sprintf("%s|%d", collection, id)
	return base64.StdEncoding.EncodeToString([]byte(cursor))
}

func splitCursor(decoded string) (string, int) {
	parts := strings.Split(decoded, "|")
	if len(parts) != 2 {
		return "", 0
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0
	}
	return parts[0], id
}
