package gene

// AlignmentMode selects which coordinate space a transcript pair was
// aligned in.
type AlignmentMode string

const (
	ModeMRNA AlignmentMode = "mRNA"
	ModeCDS  AlignmentMode = "CDS"
)
