package service

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// hashChunkSize bounds per-read memory regardless of upload size.
const hashChunkSize = 8192

// SpooledUpload is an upload captured to a temp file with its fingerprint
// computed. Callers must invoke Cleanup once the bytes are committed or the
// upload is abandoned.
type SpooledUpload struct {
	Fingerprint string
	Size        int64
	file        *os.File
}

// SpoolAndHash streams the upload into a temp file while computing its
// SHA-256 fingerprint in bounded chunks. Identical bytes always produce the
// identical fingerprint regardless of filename or declared type.
func SpoolAndHash(r io.Reader) (*SpooledUpload, error) {
	tmp, err := os.CreateTemp("", "filehub-upload-*")
	if err != nil {
		return nil, &StorageIOError{Op: "spool", Err: err}
	}

	hasher := sha256.New()
	size, err := io.CopyBuffer(io.MultiWriter(tmp, hasher), r, make([]byte, hashChunkSize))
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, &StorageIOError{Op: "spool", Err: err}
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, &StorageIOError{Op: "spool", Err: err}
	}

	return &SpooledUpload{
		Fingerprint: hex.EncodeToString(hasher.Sum(nil)),
		Size:        size,
		file:        tmp,
	}, nil
}

// Reader rewinds the spool and returns it for a fresh read.
func (s *SpooledUpload) Reader() (io.Reader, error) {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, &StorageIOError{Op: "spool seek", Err: err}
	}
	return s.file, nil
}

// Cleanup closes and removes the temp file.
func (s *SpooledUpload) Cleanup() {
	_ = s.file.Close()
	_ = os.Remove(s.file.Name())
}
