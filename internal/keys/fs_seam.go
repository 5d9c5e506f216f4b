package keys

import (
	"errors"
	"os"
)

var osWriteFile = func(path string, b []byte, perm uint32) error {
	return os.WriteFile(path, b, os.FileMode(perm))
}

var osReadFile = os.ReadFile

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
