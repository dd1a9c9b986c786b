package output

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ManifestName：每次运行写入的清单文件
const ManifestName = "manifest.json"

// File：一次运行写出的单个文件
type File struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"` // ids | adjacency | cases | merged
	Variant string `json:"variant,omitempty"`
	Rows    int    `json:"rows"`
}

// Manifest：运行清单，便于仿真侧确认输入来自同一批次
type Manifest struct {
	RunID      string    `json:"run_id"`
	Country    string    `json:"country"`
	ShapeFile  string    `json:"shape_file"`
	CasesFile  string    `json:"cases_file,omitempty"`
	IDColumn   string    `json:"id_column"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Files      []File    `json:"files"`
}

// NewManifest：分配运行 ID 并记录开始时间
func NewManifest(country string, now time.Time) *Manifest {
	return &Manifest{RunID: uuid.NewString(), Country: country, StartedAt: now.UTC()}
}

// Add：登记一个已写出的文件
func (m *Manifest) Add(name, kind, variant string, rows int) {
	m.Files = append(m.Files, File{Name: name, Kind: kind, Variant: variant, Rows: rows})
}

// WriteManifest：写 manifest.json
func WriteManifest(dir string, m *Manifest) (string, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	return write(dir, ManifestName, b)
}
