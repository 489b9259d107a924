package store

import (
	"crypto/sha256"
	"regexp"
	"strconv"

	"github.com/google/uuid"
)

const (
	codeAlphabet       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength     = 6
	referralCodeLength = 8
	maxCodeAttempts    = 16
)

var customCodePattern = regexp.MustCompile(`^[A-Z0-9]{4,16}$`)

// deriveID returns the n-th id of a command. Ids are name-based UUIDs in the
// command's namespace, so replay regenerates them exactly.
func deriveID(commandID string, n int) string {
	ns, err := uuid.Parse(commandID)
	if err != nil {
		ns = uuid.NameSpaceOID
	}
	return uuid.NewSHA1(ns, []byte(commandID+"/"+strconv.Itoa(n))).String()
}

// deriveCode returns an upper-case alphanumeric candidate code. Different
// attempts give different candidates for collision retries.
func deriveCode(commandID string, attempt, length int) string {
	sum := sha256.Sum256([]byte(commandID + "#code/" + strconv.Itoa(attempt)))
	out := make([]byte, length)
	for i := range out {
		out[i] = codeAlphabet[int(sum[i])%len(codeAlphabet)]
	}
	return string(out)
}
