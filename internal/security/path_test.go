package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFilePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid relative path",
			path: "takeout/Calls",
		},
		{
			name: "valid absolute path",
			path: "/home/me/Takeout/Voice/Calls",
		},
		{
			name:    "empty path",
			path:    "",
			wantErr: true,
			errMsg:  "path cannot be empty",
		},
		{
			name:    "path with directory traversal",
			path:    "../../../etc/passwd",
			wantErr: true,
			errMsg:  "path contains directory traversal",
		},
		{
			name:    "path with embedded traversal",
			path:    "config/../../../etc/passwd",
			wantErr: true,
			errMsg:  "path contains directory traversal",
		},
		{
			name: "dots inside a file name",
			path: "Calls/John Doe - Text - 2020-01-01T10_00_00Z..html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFileName(t *testing.T) {
	assert.NoError(t, ValidateFileName("+15551234567 - Text - 2020-01-01T10_00_00Z-1-1.jpg"))
	assert.NoError(t, ValidateFileName("Group Conversation 3"))

	assert.Error(t, ValidateFileName(""))
	assert.Error(t, ValidateFileName(".."))
	assert.Error(t, ValidateFileName("a/b.jpg"))
	assert.Error(t, ValidateFileName(`a\b.jpg`))
}

func TestValidateFilePathWithBase(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file in base", "conversation.html", false},
		{"nested file", "+1555/media/photo.jpg", false},
		{"traversal", "../outside.html", true},
		{"absolute", "/etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePathWithBase(tt.path, base)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
