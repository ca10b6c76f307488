package testutil

// FixedIDGenerator returns the same record ID every time.
//
// Useful when every record a test creates, degenerate siblings included,
// should carry one ID in traces and golden files.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a fixed ID generator.
//
// If id is empty, Generate() returns "test-record".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-record"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID. Implements worm.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
