package model

// Profile is the on-disk profile snapshot (§3.1, §6.1): per-column
// statistics, unique-candidate verdicts, and foreign-key reality records.
type Profile struct {
	Columns       []ColumnProfile       `json:"columns"`
	UniqueCandidates []UniqueCandidate   `json:"uniqueCandidates"`
	ForeignKeys   []ForeignKeyReality   `json:"foreignKeys"`
}

// ColumnCoordinate identifies a column (§3.2).
type ColumnCoordinate struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Column string `json:"column"`
}

// IndexCoordinate identifies an index (§3.2).
type IndexCoordinate struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Index  string `json:"index"`
}

// ColumnProfile is observed per-column statistics.
type ColumnProfile struct {
	Coordinate        ColumnCoordinate `json:"coordinate"`
	IsNullablePhysically bool          `json:"isNullablePhysically"`
	NullCount         int              `json:"nullCount"`
	NonNullCount      int              `json:"nonNullCount"`
	DistinctCount     int              `json:"distinctCount"`
	DefaultDefinition string           `json:"defaultDefinition,omitempty"`
}

// Reality converts this profile row into the RealitySnapshot shape the
// policy decider consumes.
func (c ColumnProfile) Reality() RealitySnapshot {
	return RealitySnapshot{
		NullCount:         c.NullCount,
		NonNullCount:      c.NonNullCount,
		DistinctCount:     c.DistinctCount,
		DefaultDefinition: c.DefaultDefinition,
	}
}

// UniqueCandidate is a profile-observed verdict on whether a declared
// index's column set actually holds unique values (single or composite).
type UniqueCandidate struct {
	Coordinate   IndexCoordinate `json:"coordinate"`
	HasDuplicates bool           `json:"hasDuplicates"`
	DuplicateCount int           `json:"duplicateCount,omitempty"`
}

// ForeignKeyReality is the observed trust state of a physical FK: orphan
// rows found, or a known not-trusted flag from the source constraint.
type ForeignKeyReality struct {
	Coordinate    ColumnCoordinate `json:"coordinate"`
	OrphanCount   int              `json:"orphanCount"`
	SourceNotTrusted bool          `json:"sourceNotTrusted"`
}

// columnIndex indexes ColumnProfile rows by coordinate for O(1) lookup.
type columnIndex map[ColumnCoordinate]ColumnProfile

// ProfileIndex holds lookup maps built once per build; the policy decider uses these
// instead of scanning the profile's slices per attribute.
type ProfileIndex struct {
	columns     columnIndex
	unique      map[IndexCoordinate]UniqueCandidate
	foreignKeys map[ColumnCoordinate]ForeignKeyReality
}

// NewProfileIndex builds the three lookup maps from a Profile.
func NewProfileIndex(p Profile) *ProfileIndex {
	idx := &ProfileIndex{
		columns:     make(columnIndex, len(p.Columns)),
		unique:      make(map[IndexCoordinate]UniqueCandidate, len(p.UniqueCandidates)),
		foreignKeys: make(map[ColumnCoordinate]ForeignKeyReality, len(p.ForeignKeys)),
	}
	for _, c := range p.Columns {
		idx.columns[c.Coordinate] = c
	}
	for _, u := range p.UniqueCandidates {
		idx.unique[u.Coordinate] = u
	}
	for _, f := range p.ForeignKeys {
		idx.foreignKeys[f.Coordinate] = f
	}
	return idx
}

func (idx *ProfileIndex) Column(c ColumnCoordinate) (ColumnProfile, bool) {
	v, ok := idx.columns[c]
	return v, ok
}

func (idx *ProfileIndex) Unique(c IndexCoordinate) (UniqueCandidate, bool) {
	v, ok := idx.unique[c]
	return v, ok
}

func (idx *ProfileIndex) ForeignKey(c ColumnCoordinate) (ForeignKeyReality, bool) {
	v, ok := idx.foreignKeys[c]
	return v, ok
}
