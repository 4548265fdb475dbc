package ontology

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"soarbench.org/soar/logger"
	"soarbench.org/soar/types"
	"soarbench.org/soar/utils"
)

// indexVersion is mixed into the cache file name so stale indexes are not reused.
const indexVersion = "concepts-v1"

// LoadFile loads an .obo file. The parsed concepts are cached as JSON under
// cacheDir/tmp_index, keyed by the file content; an empty cacheDir disables the cache.
func LoadFile(path string, cacheDir string) (*Graph, error) {
	log := logger.NewLogger("Ontology loader").With().Str("path", path).Logger()
	errLogger := log.With().Caller().Logger()
	log.Info().Msg("Started loading")

	if cacheDir == "" {
		g, err := parseFile(path)
		if err != nil {
			return nil, err
		}
		log.Info().Msgf("%d concepts were loaded", g.Len())
		return g, nil
	}

	idxCachePath, err := getDstFilepath(path, cacheDir, &errLogger)
	if err != nil {
		return nil, err
	}
	log = log.With().Str("index_cache_path", idxCachePath).Logger()

	if data, err := os.ReadFile(idxCachePath); err == nil {
		log.Info().Msg("Loading index from cache")
		var concepts []types.Concept
		if err := json.Unmarshal(data, &concepts); err != nil {
			return nil, err
		}
		g, err := FromConcepts(concepts)
		if err != nil {
			return nil, err
		}
		log.Info().Msgf("%d concepts were loaded", g.Len())
		return g, nil
	}

	log.Info().Msg("Building new index")
	g, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	serialized, err := json.Marshal(g.nodes)
	if err != nil {
		errLogger.Err(err).Msg("Got error while marshalling concepts")
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(idxCachePath), 0700); err != nil {
		errLogger.Err(err).Msg("Could not create directory for index cache")
	} else if err := os.WriteFile(idxCachePath, serialized, 0600); err != nil {
		errLogger.Err(err).Msg("Could not write index cache")
	}

	log.Info().Msgf("%d concepts were loaded", g.Len())
	return g, nil
}

func parseFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadOBO(f)
}

func getDstFilepath(oboPath string, cacheDir string, errLogger *zerolog.Logger) (string, error) {
	hash, err := func() (string, error) {
		f, err := os.Open(oboPath)
		if err != nil {
			return "", err
		}
		defer f.Close()
		hasher := sha256.New()
		if _, err := io.Copy(hasher, f); err != nil {
			return "", err
		}
		result := utils.HashString(indexVersion + hex.EncodeToString(hasher.Sum(nil)))
		return strconv.FormatUint(result, 10), nil
	}()
	if err != nil {
		errLogger.Err(err).Msg("Could not read ontology file")
		return "", err
	}

	idxName := strings.TrimSuffix(filepath.Base(oboPath), filepath.Ext(oboPath))
	return filepath.Join(cacheDir, "tmp_index", idxName+hash+".json"), nil
}
