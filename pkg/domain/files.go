package domain

// FileField is an upload slot on a record. Key points at the field holding the
// blob key; UploadTo is the strftime pattern of the storage directory.
type FileField struct {
	Name     string
	UploadTo string
	Key      *string
}

// FileHolder is implemented by records with upload slots.
type FileHolder interface {
	FileFields() []FileField
}

// Upload directory patterns.
const (
	UploadCloningGel = "cloning/%Y/%m/%d"
	UploadProtocol   = "protocol"
	UploadRaw        = "raw/%Y/%m/%d"
	UploadFinal      = "final/%Y/%m/%d"
	UploadSequencing = "sequencing/%Y/%m/%d"
)

// FileFields lists the gel image slot.
func (c *Cloning) FileFields() []FileField {
	return []FileField{{Name: "gel", UploadTo: UploadCloningGel, Key: &c.Gel}}
}

// FileFields lists the protocol document slot.
func (p *Protocol) FileFields() []FileField {
	return []FileField{{Name: "protocol_file", UploadTo: UploadProtocol, Key: &p.File}}
}

// FileFields lists the raw files, raw scans and result figures.
func (r *Result) FileFields() []FileField {
	return []FileField{
		{Name: "file1", UploadTo: UploadRaw, Key: &r.File1},
		{Name: "file2", UploadTo: UploadRaw, Key: &r.File2},
		{Name: "file3", UploadTo: UploadRaw, Key: &r.File3},
		{Name: "rawscan1", UploadTo: UploadRaw, Key: &r.RawScan1},
		{Name: "rawscan2", UploadTo: UploadRaw, Key: &r.RawScan2},
		{Name: "rawscan3", UploadTo: UploadRaw, Key: &r.RawScan3},
		{Name: "rawscan4", UploadTo: UploadRaw, Key: &r.RawScan4},
		{Name: "rawscan5", UploadTo: UploadRaw, Key: &r.RawScan5},
		{Name: "result_figure1", UploadTo: UploadFinal, Key: &r.ResultFigure1},
		{Name: "result_figure2", UploadTo: UploadFinal, Key: &r.ResultFigure2},
	}
}

// FileFields lists the trace file slot.
func (s *Sequencing) FileFields() []FileField {
	return []FileField{{Name: "file", UploadTo: UploadSequencing, Key: &s.File}}
}

// LookupFileField returns the named slot of h.
func LookupFileField(h FileHolder, name string) (FileField, bool) {
	for _, f := range h.FileFields() {
		if f.Name == name {
			return f, true
		}
	}
	return FileField{}, false
}
