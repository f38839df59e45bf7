package constants

// MimeTypes maps file extensions found in an export to their MIME types
var MimeTypes = map[string]string{
	// Image formats
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".png":  "image/png",

	// Video formats
	".mp4": "video/mp4",
	".3gp": "video/3gpp",

	// Audio formats
	".mp3": "audio/mpeg",
	".amr": "audio/amr",

	// Contact cards
	".vcf": "text/x-vcard",

	// Markup
	".html": "text/html",
}

// DefaultMimeType is the fallback MIME type for unknown file extensions
const DefaultMimeType = "application/octet-stream"
