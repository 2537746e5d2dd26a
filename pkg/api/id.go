package api

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	responseIDPrefix  = "resp_"
	messageIDPrefix   = "msg_"
	fileIDPrefix      = "file_"
	vectorStorePrefix = "vs_"
	containerIDPrefix = "cntr_"
	threadIDPrefix    = "thread_"
)

var (
	responseIDPattern  = regexp.MustCompile(`^resp_[a-zA-Z0-9]{24,}$`)
	containerIDPattern = regexp.MustCompile(`^cntr_[a-zA-Z0-9]{24,}$`)
)

// NewResponseID generates a response ID with the "resp_" prefix followed by
// 24 cryptographically random alphanumeric characters. Used by the mock
// server and by tests; the live API mints its own.
func NewResponseID() string {
	return responseIDPrefix + randomAlphanumeric(idLength)
}

// NewMessageID generates a message ID with the "msg_" prefix.
func NewMessageID() string {
	return messageIDPrefix + randomAlphanumeric(idLength)
}

// NewFileID generates a file ID with the "file_" prefix.
func NewFileID() string {
	return fileIDPrefix + randomAlphanumeric(idLength)
}

// NewVectorStoreID generates a vector store ID with the "vs_" prefix.
func NewVectorStoreID() string {
	return vectorStorePrefix + randomAlphanumeric(idLength)
}

// NewContainerID generates a container ID with the "cntr_" prefix.
func NewContainerID() string {
	return containerIDPrefix + randomAlphanumeric(idLength)
}

// NewThreadID generates a local conversation thread ID with the "thread_"
// prefix. Threads are a client-side construct; the ID never goes over the
// wire except as a store key.
func NewThreadID() string {
	return threadIDPrefix + randomAlphanumeric(idLength)
}

// ValidateResponseID checks whether the given string looks like a response
// ID ("resp_" + at least 24 alphanumeric characters).
func ValidateResponseID(id string) bool {
	return responseIDPattern.MatchString(id)
}

// ValidateContainerID checks whether the given string looks like an
// execution container ID ("cntr_" + at least 24 alphanumeric characters).
func ValidateContainerID(id string) bool {
	return containerIDPattern.MatchString(id)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
