package file

import (
	"encoding/json"
	"sort"

	"github.com/dukex/docflow/pkg/models"
)

type snapshot struct {
	Documents   map[string]*models.Document       `json:"documents"`
	Approvals   map[string]*models.ApprovalRecord `json:"approvals"`
	Resolutions map[string]*models.StepResolution `json:"resolutions"`
}

func newSnapshot() *snapshot {
	return &snapshot{
		Documents:   make(map[string]*models.Document),
		Approvals:   make(map[string]*models.ApprovalRecord),
		Resolutions: make(map[string]*models.StepResolution),
	}
}

func (s *snapshot) clone() (*snapshot, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}

	copied := newSnapshot()

	err = json.Unmarshal(data, copied)
	if err != nil {
		return nil, err
	}

	return copied, nil
}

func resolutionKey(documentID, stepID string) string {
	return documentID + "/" + stepID
}

// approvals returns copies of the records accepted by keep, oldest first.
func (s *snapshot) approvals(keep func(r *models.ApprovalRecord) bool) []*models.ApprovalRecord {
	records := make([]*models.ApprovalRecord, 0)

	for _, record := range s.Approvals {
		if keep(record) {
			records = append(records, copyApproval(record))
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}

		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	return records
}

func copyApproval(r *models.ApprovalRecord) *models.ApprovalRecord {
	c := *r

	return &c
}

func copyDocument(d *models.Document) *models.Document {
	c := *d

	return &c
}

func copyResolution(r *models.StepResolution) *models.StepResolution {
	c := *r

	return &c
}

func sortByID(records []*models.ApprovalRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
}
