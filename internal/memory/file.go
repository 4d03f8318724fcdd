package memory

import (
	"bufio"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

const fileVersion = 1

type FileHeader struct {
	Version int    `json:"version"`
	Records int    `json:"records"`
	SavedAt string `json:"saved_at"`
}

type fileImage struct {
	Header  FileHeader
	Records map[string][]byte
}

// FileBackend keeps all records in one zstd-compressed snapshot file: a JSON
// header line followed by a gob image. Every Save rewrites the file through
// a temp file and rename.
type FileBackend struct {
	path    string
	records map[string][]byte
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path, records: map[string][]byte{}}
}

func (b *FileBackend) Path() string { return b.path }

func (b *FileBackend) Load(context.Context) (map[string][]byte, error) {
	img, err := readImage(b.path)
	if errors.Is(err, os.ErrNotExist) {
		b.records = map[string][]byte{}
		return map[string][]byte{}, nil
	}
	if err != nil {
		return nil, err
	}
	if img.Records == nil {
		img.Records = map[string][]byte{}
	}
	b.records = img.Records
	out := make(map[string][]byte, len(img.Records))
	for k, v := range img.Records {
		out[k] = v
	}
	return out, nil
}

func (b *FileBackend) Save(_ context.Context, put map[string][]byte, del []string) error {
	for _, k := range del {
		delete(b.records, k)
	}
	for k, v := range put {
		b.records[k] = v
	}
	img := fileImage{
		Header:  FileHeader{Version: fileVersion, Records: len(b.records), SavedAt: time.Now().UTC().Format(time.RFC3339)},
		Records: b.records,
	}
	tmp := b.path + ".tmp"
	if err := writeImage(tmp, img); err != nil {
		return err
	}
	return os.Rename(tmp, b.path)
}

func (b *FileBackend) Close() error { return nil }

func writeImage(path string, img fileImage) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(img.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&img); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

func readImage(path string) (fileImage, error) {
	var img fileImage
	f, err := os.Open(path)
	if err != nil {
		return img, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return img, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return img, fmt.Errorf("read header: %w", err)
	}
	var hdr FileHeader
	if err := json.Unmarshal(line, &hdr); err != nil {
		return img, fmt.Errorf("decode header: %w", err)
	}
	if hdr.Version != fileVersion {
		return img, fmt.Errorf("unsupported memory file version %d", hdr.Version)
	}
	if err := gob.NewDecoder(br).Decode(&img); err != nil {
		return img, fmt.Errorf("gob decode: %w", err)
	}
	return img, nil
}

// ReadFileHeader returns the header line of a memory file without decoding
// the records.
func ReadFileHeader(path string) (FileHeader, error) {
	var hdr FileHeader
	f, err := os.Open(path)
	if err != nil {
		return hdr, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return hdr, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return hdr, err
	}
	err = json.Unmarshal(line, &hdr)
	return hdr, err
}
