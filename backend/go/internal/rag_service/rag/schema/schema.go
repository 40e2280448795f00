package schema

const (
	// MetadataKeySource is the knowledge source (URL, path or s3:// URI) a document came from.
	MetadataKeySource = "source"
	// MetadataKeyFileName is the key for the source file name.
	MetadataKeyFileName = "file_name"
	// MetadataKeyPageLabel is the key for the page number or label from the source document.
	MetadataKeyPageLabel = "page_label"
	// MetadataKeySheetName is the worksheet a spreadsheet document was read from.
	MetadataKeySheetName = "sheet_name"
	// MetadataKeyContentType is the sniffed MIME type of the raw source content.
	MetadataKeyContentType = "content_type"
	// MetadataKeyParentID links a segment to the text unit it was split from.
	MetadataKeyParentID = "parent_id"
	// MetadataKeyChunkIndex is the position of a segment within its text unit.
	MetadataKeyChunkIndex = "chunk_index"
)

// Document is the central data structure representing a piece of text and its associated data.
// Loaders produce one Document per text unit; splitters turn those into segment Documents.
type Document struct {
	// ID is the unique identifier for this document chunk.
	ID string

	// Text is the string content of the document chunk.
	Text string

	// Embedding is the vector representation of the text.
	Embedding []float32

	// Ordinal is the insertion position of a segment in the index.
	// It is assigned when the index is built and breaks distance ties during search.
	Ordinal int

	// Metadata holds arbitrary data about the document, such as its source and file name.
	Metadata map[string]interface{}
}

// Source returns the knowledge source recorded in the metadata, or "".
func (d *Document) Source() string {
	if d == nil || d.Metadata == nil {
		return ""
	}
	s, _ := d.Metadata[MetadataKeySource].(string)
	return s
}

// ScoredDocument is a search hit: a document and its squared L2 distance to the query.
type ScoredDocument struct {
	Document *Document
	Distance float32
}

// Texts returns the text of every hit, in order.
func Texts(docs []ScoredDocument) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Document.Text
	}
	return out
}
