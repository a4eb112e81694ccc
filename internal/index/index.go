package index

// CardIndex defines the interface for link-graph operations. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with mocks.
type CardIndex interface {
	UpsertCard(c CardRow, body string, links []string) error
	DeleteCard(id string) error
	GetChecksum(id string) (string, error)
	AllChecksums() (map[string]string, error)
	Backlinks(target string) ([]string, error)
	Graph() ([]GraphNode, []GraphLink, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies CardIndex at compile time.
var _ CardIndex = (*DB)(nil)
