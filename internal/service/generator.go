package service

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/fcf-tessere/unlock-server-go/internal/config"
)

// unlockCodeChars excludes I, O, 0 and 1.
const unlockCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type CodeGenerator interface {
	Generate() string
}

// RandomCodeGenerator produces codes shaped PREFIX-XXXX-XXXX-XXXX.
type RandomCodeGenerator struct {
	prefix string
}

func NewRandomCodeGenerator(prefix string) *RandomCodeGenerator {
	return &RandomCodeGenerator{prefix: strings.ToUpper(prefix)}
}

func (g *RandomCodeGenerator) Generate() string {
	groups := make([]string, 0, config.CodeGroupCount+1)
	if g.prefix != "" {
		groups = append(groups, g.prefix)
	}
	for i := 0; i < config.CodeGroupCount; i++ {
		groups = append(groups, randomGroup(config.CodeGroupLength))
	}
	return strings.Join(groups, "-")
}

func randomGroup(n int) string {
	base := big.NewInt(int64(len(unlockCodeChars)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, base)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken.
			panic("unlock code entropy: " + err.Error())
		}
		b[i] = unlockCodeChars[idx.Int64()]
	}
	return string(b)
}

// NormalizeCode is applied to every code a caller presents.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
