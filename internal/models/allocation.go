package models

// Settings carries the per-request allocation parameters.
type Settings struct {
	ConfigName     string   `json:"config_name" yaml:"config_name" mapstructure:"config_name"`
	Bins           int      `json:"bins" yaml:"bins" mapstructure:"bins"`
	BatchSize      int      `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
	ComponentNames []string `json:"component_names" yaml:"component_names" mapstructure:"component_names"`
	PartCount      int      `json:"part_count,omitempty" yaml:"part_count,omitempty" mapstructure:"part_count"`
	BatchCount     int      `json:"batch_count,omitempty" yaml:"batch_count,omitempty" mapstructure:"batch_count"`
}

// AllocationResult is the outcome of a permutation search.
// Permutation[i] is the index of the b-side item paired with a-side item i.
type AllocationResult struct {
	Permutation []int     `json:"permutation"`
	Costs       []float64 `json:"costs"`
	Total       float64   `json:"total"`
	Evaluated   int64     `json:"evaluated"`
}

// BatchAllocation pairs batch i of the first component with batch
// BatchIndex of the second and lists the part-level pairing inside it.
type BatchAllocation struct {
	BatchIndex      int   `json:"batch_index"`
	PartPermutation []int `json:"part_permutation"`
}
