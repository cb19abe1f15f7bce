package utils

import (
	"bufio"
	"os"
	"strings"

	"github.com/twmb/murmur3"
)

func HashString(s string) uint64 {
	return HashBytes([]byte(s))
}

func HashBytes(bytes ...[]byte) uint64 {
	hash := murmur3.New64()
	for _, b := range bytes {
		_, err := hash.Write(b)
		if err != nil {
			panic(err)
		}
	}
	return hash.Sum64()
}

// HashKey joins parts with a separator that cannot occur inside a tag or a
// file key and hashes the result.
func HashKey(parts ...string) uint64 {
	return HashString(strings.Join(parts, "\x00"))
}

// ReadSet reads one entry per line, skipping blank lines.
func ReadSet(filePath string) (map[string]bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)

	result := make(map[string]bool)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}
		result[line] = true
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
