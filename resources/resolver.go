package resources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/dustin/go-humanize"
)

type ResourceFlag uint8

// WriteCounter counts the number of bytes written to it, and every 10 seconds,
// it prints a message reporting the number of bytes written so far.
type WriteCounter struct {
	Total    uint64
	Last     time.Time
	Reported bool
	Path     string
	Size     uint64
}

func (wc *WriteCounter) Write(p []byte) (int, error) {
	n := len(p)
	wc.Total += uint64(n)
	if time.Since(wc.Last).Seconds() > 10 {
		wc.Reported = true
		wc.Last = time.Now()
		log.Printf("Downloading %s... %s / %s completed.",
			wc.Path, humanize.Bytes(wc.Total), humanize.Bytes(wc.Size))
	}
	return n, nil
}

// Enumeration of resource flags that indicate what the resolver should do
// with the resource.
const (
	RESOURCE_REQUIRED ResourceFlag = 1 << iota
	RESOURCE_OPTIONAL
	RESOURCE_DERIVED
)

const (
	VocabFile  = "tokenizer.bin"
	ConfigFile = "tokenizer_config.json"
	ModelFile  = "tokenizer.model"
)

type ResourceEntryDefs map[string]ResourceFlag
type ResourceEntry struct {
	file  interface{}
	unmap func() error
	Data  *[]byte
}

type Resources map[string]ResourceEntry

// Cleanup unmaps and closes every entry. Data slices must not be used
// afterwards.
func (rsrcs *Resources) Cleanup() {
	for name, rsrc := range *rsrcs {
		if rsrc.unmap != nil {
			if err := rsrc.unmap(); err != nil {
				log.Printf("error unmapping %s: %v", name, err)
			}
		}
		switch t := rsrc.file.(type) {
		case *os.File:
			t.Close()
		case fs.File:
			t.Close()
		}
	}
}

// GetResourceEntries
// Returns the map of files that make up a tokenizer directory.
func GetResourceEntries() ResourceEntryDefs {
	return ResourceEntryDefs{
		VocabFile:  RESOURCE_REQUIRED,
		ConfigFile: RESOURCE_OPTIONAL,
	}
}

func isValidUrl(toTest string) bool {
	_, err := url.ParseRequestURI(toTest)
	if err != nil {
		return false
	}

	u, err := url.Parse(toTest)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}

	return true
}

// Fetch
// Given a base URI and a resource name, returns a handle to a local file
// or the body of a remote HTTP resource.
func Fetch(uri string, rsrc string, auth string) (io.ReadCloser, error) {
	if isValidUrl(uri) {
		return FetchHTTP(uri, rsrc, auth)
	}
	handle, fileErr := os.Open(path.Join(uri, rsrc))
	if fileErr != nil {
		return nil, fmt.Errorf("error opening %s/%s: %w", uri, rsrc, fileErr)
	}
	return handle, nil
}

// Size
// Given a base URI and a resource name, determine the size of the resource.
func Size(uri string, rsrc string, auth string) (uint, error) {
	if isValidUrl(uri) {
		return SizeHTTP(uri, rsrc, auth)
	}
	fsz, err := os.Stat(path.Join(uri, rsrc))
	if err != nil {
		return 0, err
	}
	return uint(fsz.Size()), nil
}

// AddEntry
// Add a resource to the Resources map, reading it through mmap.
func (rsrcs *Resources) AddEntry(name string, file *os.File) error {
	fileMmap, unmap, mmapErr := readMmap(file)
	if mmapErr != nil {
		return fmt.Errorf("error trying to mmap file: %w", mmapErr)
	}
	(*rsrcs)[name] = ResourceEntry{file: file, unmap: unmap, Data: fileMmap}
	return nil
}

// ResolveResources resolves all resources at a given uri. Local directories
// are mapped in place; remote resources are downloaded into dir first,
// skipping files already present with the correct size.
func ResolveResources(uri string, dir string, auth string,
	rsrcLvl ResourceFlag) (*Resources, error) {
	foundResources := make(Resources, 0)
	remote := isValidUrl(uri)

	for file, flag := range GetResourceEntries() {
		if flag > rsrcLvl {
			continue
		}
		rsrcSize, rsrcSizeErr := Size(uri, file, auth)
		if rsrcSizeErr != nil {
			if flag&RESOURCE_REQUIRED != 0 {
				foundResources.Cleanup()
				return nil, fmt.Errorf(
					"cannot retrieve required `%s` from `%s`: %w",
					file, uri, rsrcSizeErr)
			}
			continue
		}

		var rsrcFile *os.File
		targetPath := path.Join(dir, file)
		if !remote {
			openFile, openErr := os.Open(path.Join(uri, file))
			if openErr != nil {
				foundResources.Cleanup()
				return nil, openErr
			}
			rsrcFile = openFile
		} else if targetStat, statErr := os.Stat(targetPath); statErr == nil &&
			uint(targetStat.Size()) == rsrcSize {
			log.Printf("Skipping %s/%s... already exists, "+
				"and of the correct size.", uri, file)
			openFile, openErr := os.Open(targetPath)
			if openErr != nil {
				foundResources.Cleanup()
				return nil, openErr
			}
			rsrcFile = openFile
		} else {
			openFile, downloadErr := download(uri, file, auth, targetPath,
				rsrcSize)
			if downloadErr != nil {
				foundResources.Cleanup()
				return nil, downloadErr
			}
			rsrcFile = openFile
		}
		if mmapErr := foundResources.AddEntry(file, rsrcFile); mmapErr != nil {
			rsrcFile.Close()
			foundResources.Cleanup()
			return nil, mmapErr
		}
	}
	return &foundResources, nil
}

func download(uri, file, auth, targetPath string,
	size uint) (*os.File, error) {
	rsrcReader, rsrcErr := Fetch(uri, file, auth)
	if rsrcErr != nil {
		return nil, fmt.Errorf("cannot retrieve `%s` from `%s`: %w",
			file, uri, rsrcErr)
	}
	defer rsrcReader.Close()
	rsrcFile, rsrcFileErr := os.OpenFile(targetPath,
		os.O_TRUNC|os.O_RDWR|os.O_CREATE, 0644)
	if rsrcFileErr != nil {
		return nil, fmt.Errorf("error opening '%s' for write: %w",
			targetPath, rsrcFileErr)
	}
	counter := &WriteCounter{
		Last: time.Now(),
		Path: fmt.Sprintf("%s/%s", uri, file),
		Size: uint64(size),
	}
	bytesDownloaded, ioErr := io.Copy(rsrcFile,
		io.TeeReader(rsrcReader, counter))
	if ioErr != nil {
		rsrcFile.Close()
		return nil, fmt.Errorf("error downloading '%s': %w", file, ioErr)
	}
	log.Printf("Downloaded %s/%s... %s completed.", uri, file,
		humanize.Bytes(uint64(bytesDownloaded)))
	if _, seekErr := rsrcFile.Seek(0, io.SeekStart); seekErr != nil {
		rsrcFile.Close()
		return nil, seekErr
	}
	return rsrcFile, nil
}

// SpecialToken is a token string in a tokenizer configuration. It accepts
// either a plain JSON string or an object carrying a `content` field.
type SpecialToken string

func (s *SpecialToken) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*s = SpecialToken(plain)
		return nil
	}
	var obj struct {
		Content *string `json:"content"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.Content == nil {
		return errors.New("special token object has no `content`")
	}
	*s = SpecialToken(*obj.Content)
	return nil
}

// TokenizerConfig is the on-disk tokenizer configuration. Absent fields
// are nil so callers can tell them apart from zero values.
type TokenizerConfig struct {
	ModelId       *string        `json:"model_id,omitempty"`
	BosToken      *SpecialToken  `json:"bos_token,omitempty"`
	EosToken      *SpecialToken  `json:"eos_token,omitempty"`
	AddBosToken   *bool          `json:"add_bos_token,omitempty"`
	AddEosToken   *bool          `json:"add_eos_token,omitempty"`
	SplitUnit     *string        `json:"split_unit,omitempty"`
	SpecialTokens []SpecialToken `json:"special_tokens,omitempty"`
	CacheSize     *int           `json:"cache_size,omitempty"`
}

// ParseConfig decodes a tokenizer configuration.
func ParseConfig(data []byte) (*TokenizerConfig, error) {
	var config TokenizerConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling `%s`: %w",
			ConfigFile, err)
	}
	return &config, nil
}

// ResolveConfig returns the parsed configuration from rsrcs, or an empty
// configuration when none was resolved.
func (rsrcs *Resources) ResolveConfig() (*TokenizerConfig, error) {
	entry, ok := (*rsrcs)[ConfigFile]
	if !ok || entry.Data == nil {
		return &TokenizerConfig{}, nil
	}
	return ParseConfig(*entry.Data)
}

// ResolveVocabId
// Resolves a vocabulary id to its configuration and resources, from
// embedded data, the local filesystem, or a remote URL.
func ResolveVocabId(vocabId string, auth string) (*TokenizerConfig,
	*Resources, error) {
	if _, embedErr := EmbeddedDirExists(vocabId); embedErr == nil {
		resources := make(Resources, 0)
		vocabEntry := GetEmbeddedResource(path.Join(vocabId, VocabFile))
		if vocabEntry == nil {
			return nil, nil, fmt.Errorf("embedded `%s` has no `%s`",
				vocabId, VocabFile)
		}
		resources[VocabFile] = *vocabEntry
		if configEntry := GetEmbeddedResource(
			path.Join(vocabId, ConfigFile)); configEntry != nil {
			resources[ConfigFile] = *configEntry
		}
		return resolveConfig(vocabId, &resources)
	}

	dir, dirErr := os.MkdirTemp("", "llama_bpe")
	if dirErr != nil {
		return nil, nil, dirErr
	}
	// Mapped files stay readable after their directory entry is gone.
	defer os.RemoveAll(dir)
	resources, rsrcErr := ResolveResources(vocabId, dir, auth,
		RESOURCE_OPTIONAL)
	if rsrcErr != nil {
		return nil, nil, rsrcErr
	}
	return resolveConfig(vocabId, resources)
}

func resolveConfig(vocabId string, resources *Resources) (*TokenizerConfig,
	*Resources, error) {
	config, configErr := resources.ResolveConfig()
	if configErr != nil {
		resources.Cleanup()
		return nil, nil, configErr
	}
	if config.ModelId == nil {
		modelId := vocabId
		if isValidUrl(vocabId) {
			u, _ := url.Parse(vocabId)
			modelId = path.Base(u.Path)
		}
		config.ModelId = &modelId
	}
	return config, resources, nil
}
