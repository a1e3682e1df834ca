package domain

// Photo is one catalogued image. The persisted identity of a photo is its
// ID, derived once from the media URL filename at save time and never
// reassigned. IsUploading and UploadFailed exist only on local placeholder
// entries and are never written to the catalog store.
type Photo struct {
	ID        string   `json:"id" bson:"id"`
	ImageURL  string   `json:"image_url" bson:"image_url"`
	Comment   string   `json:"comment" bson:"comment"`
	Tags      []string `json:"tags" bson:"tags"`
	Folder    string   `json:"folder" bson:"folder"`
	CreatedAt int64    `json:"created_at" bson:"created_at"`
	Name      string   `json:"name" bson:"name"`
	Country   string   `json:"country" bson:"country"`
	Store     string   `json:"store" bson:"store"`
	Price     float64  `json:"price" bson:"price"`
	Rating    int      `json:"rating" bson:"rating"`

	IsUploading  bool `json:"is_uploading,omitempty" bson:"-"`
	UploadFailed bool `json:"upload_failed,omitempty" bson:"-"`
}

// HasTag reports whether the photo carries the given tag. Tag order is a
// display concern only.
func (p Photo) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Folder is a named per-user partition of photos. Name doubles as the
// folder's document identifier, which is what makes names unique per user.
type Folder struct {
	Name       string `json:"name" bson:"name"`
	CreatedAt  int64  `json:"created_at" bson:"created_at"`
	PhotoCount int64  `json:"photo_count,omitempty" bson:"-"`
}
