package utils

import (
	"bufio"
	"io"
	"os"
	"path"
	"strings"

	"soarbench.org/soar/logger"
)

type GetHashFunc func(columns []string) uint64

// ColumnsHash hashes all columns of a row, used to drop duplicate rows.
func ColumnsHash(columns []string) uint64 {
	return HashString(strings.Join(columns, "|"))
}

// NewBSVReader streams the rows of a pipe separated file, lowercased, skipping comments and duplicates.
func NewBSVReader(bsvPath string, getHash GetHashFunc) (<-chan []string, error) {
	_, fileName := path.Split(bsvPath)
	log := logger.NewLogger("BSVReader (" + fileName + ")")

	f, err := os.Open(bsvPath)
	if err != nil {
		return nil, err
	}

	out := make(chan []string)

	go func() {
		defer f.Close()
		defer close(out)

		r := bufio.NewReader(f)

		// to remove duplicates
		var hashes = make(map[uint64]bool)

		for {
			line, err := r.ReadString('\n')
			if len(line) == 0 {
				if err != io.EOF {
					log.Error().Err(err).Msg("read failed")
				}
				return
			}

			line = strings.TrimRight(line, "\r\n")
			if line == "" || isComment(line) {
				continue
			}
			columns := strings.Split(strings.ToLower(line), "|")

			hash := getHash(columns)
			if !hashes[hash] {
				hashes[hash] = true
				out <- columns
			}
		}
	}()

	return out, nil
}
