// Package env loads dotenv files into the process environment.
package env

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
)

// LoadEnv reads the given dotenv files, or .env when none are named.
// Variables already set in the environment win. Missing files are not an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Printf("No %s file found, assuming environment variables are set directly.", f)
				continue
			}
			return err
		}
	}
	return nil
}
