package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const tokenBytes = 32

// GenerateToken returns a random hex token suitable as an admin bearer token.
func GenerateToken() (string, error) {
	bytes := make([]byte, tokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func HmacSHA256(secret, data string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// MaskCode keeps the prefix and the last group of an unlock code,
// e.g. FCF-****-****-CCCC.
func MaskCode(code string) string {
	groups := strings.Split(code, "-")
	if len(groups) < 3 {
		if len(code) <= 4 {
			return "****"
		}
		return code[:4] + "-****"
	}
	for i := 1; i < len(groups)-1; i++ {
		groups[i] = "****"
	}
	return strings.Join(groups, "-")
}
