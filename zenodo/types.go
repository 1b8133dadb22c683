package zenodo

// Deposition lifecycle states as reported by the archive.
const (
	// StateUnsubmitted marks a draft that has never been published.
	StateUnsubmitted = "unsubmitted"

	// StateInProgress marks a draft opened from a published record.
	StateInProgress = "inprogress"

	// StateDone marks a published deposition. Published depositions accept
	// no file or metadata mutation.
	StateDone = "done"
)

// UploadTypeSoftware is the deposition upload type for software releases.
const UploadTypeSoftware = "software"

// Creator is one entry of a deposition's creators list.
// Name is in "family, given" order.
type Creator struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	ORCID       string `json:"orcid,omitempty"`
}

// RelatedIdentifier links a deposition to an external resource such as the
// source repository.
type RelatedIdentifier struct {
	Identifier string `json:"identifier"`
	Relation   string `json:"relation"`
}

// DepositionMetadata is the descriptive metadata block of a deposition.
// Zero-valued fields are omitted on the wire so that updates merge onto the
// remote record instead of clearing it.
type DepositionMetadata struct {
	Title              string              `json:"title,omitempty"`
	UploadType         string              `json:"upload_type,omitempty"`
	Description        string              `json:"description,omitempty"`
	Creators           []Creator           `json:"creators,omitempty"`
	Version            string              `json:"version,omitempty"`
	License            string              `json:"license,omitempty"`
	Keywords           []string            `json:"keywords,omitempty"`
	DOI                string              `json:"doi,omitempty"`
	PublicationDate    string              `json:"publication_date,omitempty"`
	RelatedIdentifiers []RelatedIdentifier `json:"related_identifiers,omitempty"`
}

// Links carries the hypermedia links the archive attaches to a deposition.
// Only the links the client follows are decoded.
type Links struct {
	LatestDraft string `json:"latest_draft,omitempty"`
}

// Deposition is a single versioned record on the archive.
type Deposition struct {
	ID           int64              `json:"id"`
	ConceptRecID string             `json:"conceptrecid,omitempty"`
	State        string             `json:"state,omitempty"`
	Submitted    bool               `json:"submitted,omitempty"`
	Metadata     DepositionMetadata `json:"metadata"`
	Links        Links              `json:"links"`
}

// Published reports whether the deposition has reached its terminal
// published state.
func (d *Deposition) Published() bool {
	return d.Submitted || d.State == StateDone
}

// File is a file attached to a deposition.
type File struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize,omitempty"`
	Checksum string `json:"checksum,omitempty"`
}
