package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

var (
	NanoidSize     = 24
	nanoidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	TempPasswordSize = 8
	hexAlphabet      = "0123456789abcdef"
)

func NanoID() string {
	return NanoIDSize(NanoidSize)
}

func NanoIDSize(size int) string {
	if size == 0 {
		size = NanoidSize
	}

	return gonanoid.MustGenerate(nanoidAlphabet, size)
}

// TempPassword returns a short random hex token handed to newly onboarded users.
func TempPassword() (string, error) {
	return gonanoid.Generate(hexAlphabet, TempPasswordSize)
}
