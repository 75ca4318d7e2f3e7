// records.go - Append-only journal of protocol records.
//
// The journal is the sole externally observable trace of committed state.
// Independent observers reconstruct the full tree from it (the accumulator
// itself never stores the tree, only checkpoints). It persists as a single
// JSON file in the same manner as a public ledger dump.

package shield

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// RecordType tags journal entries.
type RecordType string

const (
	RecordCommitmentAdded       RecordType = "commitment-added"
	RecordRootPublished         RecordType = "root-published"
	RecordNullifierRecorded     RecordType = "nullifier-recorded"
	RecordRevealed              RecordType = "revealed"
	RecordChangeCommitmentAdded RecordType = "change-commitment-added"
)

// Record is one journal entry. Field elements are decimal strings; only the
// fields relevant to the record's type are populated.
type Record struct {
	Type              RecordType `json:"type"`
	Commitment        string     `json:"commitment,omitempty"`
	LeafIndex         uint64     `json:"leaf_index"`
	OldRoot           string     `json:"old_root,omitempty"`
	NewRoot           string     `json:"new_root,omitempty"`
	LeafCountAtUpdate uint64     `json:"leaf_count_at_update,omitempty"`
	Nullifier         string     `json:"nullifier,omitempty"`
	Asset             string     `json:"asset,omitempty"`
	Recipient         string     `json:"recipient,omitempty"`
	Amount            string     `json:"amount,omitempty"`
	Timestamp         time.Time  `json:"timestamp"`
}

// Journal is the append-only record stream. Appends only ever come from the
// accumulator, registry and pool; readers get copies.
type Journal struct {
	mu      sync.Mutex
	records []Record
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{records: make([]Record, 0)}
}

func (j *Journal) append(r Record) {
	j.mu.Lock()
	j.records = append(j.records, r)
	j.mu.Unlock()
}

// removeNullifierRecord drops the most recent nullifier-recorded entry for
// nullifier. Used only by the pool to unwind a reveal whose release step
// failed; records appended concurrently by other writers (root publication
// in particular) stay intact.
func (j *Journal) removeNullifierRecord(nullifier string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.records) - 1; i >= 0; i-- {
		if j.records[i].Type == RecordNullifierRecorded && j.records[i].Nullifier == nullifier {
			j.records = append(j.records[:i], j.records[i+1:]...)
			return
		}
	}
}

// Len returns the number of records.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.records)
}

// Records returns a copy of all records.
func (j *Journal) Records() []Record {
	return j.RecordsFrom(0)
}

// RecordsFrom returns a copy of the records starting at offset from.
func (j *Journal) RecordsFrom(from int) []Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	if from < 0 || from >= len(j.records) {
		return nil
	}
	out := make([]Record, len(j.records)-from)
	copy(out, j.records[from:])
	return out
}

func (j *Journal) commitmentAdded(typ RecordType, cm fr.Element, leafIndex uint64, ts time.Time) {
	j.append(Record{
		Type:       typ,
		Commitment: cm.String(),
		LeafIndex:  leafIndex,
		Timestamp:  ts,
	})
}

func (j *Journal) rootPublished(old, new_ fr.Element, leafCountAtUpdate uint64, ts time.Time) {
	j.append(Record{
		Type:              RecordRootPublished,
		OldRoot:           old.String(),
		NewRoot:           new_.String(),
		LeafCountAtUpdate: leafCountAtUpdate,
		Timestamp:         ts,
	})
}

func (j *Journal) nullifierRecorded(nf fr.Element, ts time.Time) {
	j.append(Record{
		Type:      RecordNullifierRecorded,
		Nullifier: nf.String(),
		Timestamp: ts,
	})
}

func (j *Journal) revealed(asset, recipient, amount, nullifier string, ts time.Time) {
	j.append(Record{
		Type:      RecordRevealed,
		Asset:     asset,
		Recipient: recipient,
		Amount:    amount,
		Nullifier: nullifier,
		Timestamp: ts,
	})
}

// SaveToFile writes the journal to a JSON file, overwriting it.
func (j *Journal) SaveToFile(path string) error {
	j.mu.Lock()
	records := make([]Record, len(j.records))
	copy(records, j.records)
	j.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// LoadJournalFromFile reads a journal previously written by SaveToFile.
func LoadJournalFromFile(path string) (*Journal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var records []Record
	if err := json.NewDecoder(f).Decode(&records); err != nil {
		return nil, err
	}
	return &Journal{records: records}, nil
}
