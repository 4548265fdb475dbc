package utils

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/twmb/murmur3"
)

func HashString(s string) uint64 {
	hash := murmur3.New64()
	_, err := hash.Write([]byte(s))
	if err != nil {
		panic(err)
	}
	return hash.Sum64()
}

// HashKey joins the parts with '|' and hashes the result.
func HashKey(parts ...string) string {
	return fmt.Sprintf("%x", HashString(strings.Join(parts, "|")))
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//")
}

// ReadMap reads a two column pipe separated file. Blank and comment lines are skipped.
func ReadMap(filePath string) (map[string]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)

	result := make(map[string]string)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || isComment(line) {
			continue
		}
		p := strings.Split(line, "|")
		if len(p) < 2 {
			return nil, fmt.Errorf("%s:%d: expected 2 columns, got %d", filePath, lineNo, len(p))
		}
		result[p[0]] = p[1]
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func ReadSet(filePath string) (map[string]bool, error) {
	list, err := ReadList(filePath)
	if err != nil {
		return nil, err
	}

	result := make(map[string]bool, len(list))
	for _, item := range list {
		result[item] = true
	}
	return result, nil
}

func ReadList(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)

	var result []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || isComment(line) {
			continue
		}
		result = append(result, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Unique returns items without repeats, keeping the first occurrence of each.
func Unique(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		result = append(result, item)
	}
	return result
}
