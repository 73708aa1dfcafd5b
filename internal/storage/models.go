package storage

// Object is one stored image: the durable record backing an image reference
// held on a kata.
type Object struct {
	ID            string `json:"id"`
	UploaderID    string `json:"uploaderId"`
	Filename      string `json:"filename"`
	ContentType   string `json:"contentType"`
	SizeBytes     int64  `json:"sizeBytes"`
	StoragePath   string `json:"-"`
	ThumbnailPath string `json:"-"`
	Width         *int   `json:"width,omitempty"`
	Height        *int   `json:"height,omitempty"`
	Checksum      string `json:"checksum"`
	CreatedAt     int64  `json:"createdAt"`
}
