package service

import (
	"path/filepath"
	"strings"
)

// allowedExtensions is the upload allow-list: anything not listed is
// rejected by default.
var allowedExtensions = map[string]bool{
	// images
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".webp": true, ".ico": true, ".svg": true, ".tif": true, ".tiff": true,
	// documents
	".pdf": true, ".doc": true, ".docx": true, ".txt": true, ".rtf": true, ".odt": true,
	// spreadsheets
	".xls": true, ".xlsx": true, ".csv": true, ".ods": true,
	// presentations
	".ppt": true, ".pptx": true, ".odp": true,
	// archives
	".zip": true, ".rar": true, ".7z": true, ".tar": true, ".gz": true, ".bz2": true,
	// video
	".mp4": true, ".avi": true, ".mov": true, ".wmv": true, ".flv": true, ".mkv": true, ".webm": true,
	// audio
	".mp3": true, ".wav": true, ".flac": true, ".aac": true, ".ogg": true, ".m4a": true,
	// data
	".json": true, ".xml": true, ".yaml": true, ".yml": true,
	// text
	".md": true, ".log": true, ".html": true,
}

// windowsReservedNames cannot be used as filenames on some clients.
var windowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// ValidateFilename checks the filename for emptiness, length, path
// traversal and the extension allow-list.
func ValidateFilename(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return &ValidationError{Reason: "filename cannot be empty"}
	}
	if len(filename) > 255 {
		return &ValidationError{Reason: "filename is too long (maximum 255 characters)"}
	}
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, "/\\") {
		return &ValidationError{Reason: "filename contains invalid characters"}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return &ValidationError{Reason: "file extension '" + ext + "' is not supported"}
	}

	base := strings.ToUpper(strings.TrimSuffix(filename, filepath.Ext(filename)))
	if windowsReservedNames[base] {
		return &ValidationError{Reason: "filename '" + filename + "' is reserved and not allowed"}
	}

	return nil
}
