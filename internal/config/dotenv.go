package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadDotEnv exports the variables of an env file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadDotEnv(path string) (bool, error) {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
