package core

// ToolName identifies one of the fixed, enumerated tools the assistant may
// invoke through the tag grammar.
type ToolName string

const (
	ToolReadFile          ToolName = "read_file"
	ToolWriteToFile       ToolName = "write_to_file"
	ToolExecuteCommand    ToolName = "execute_command"
	ToolListFiles         ToolName = "list_files"
	ToolAttemptCompletion ToolName = "attempt_completion"
)

// ToolNames lists the recognised tool tags in declaration order.
var ToolNames = []ToolName{
	ToolReadFile,
	ToolWriteToFile,
	ToolExecuteCommand,
	ToolListFiles,
	ToolAttemptCompletion,
}

// IsKnown reports whether n belongs to the enumerated tool set. Matching is
// case-sensitive.
func (n ToolName) IsKnown() bool {
	for _, known := range ToolNames {
		if n == known {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (n ToolName) String() string { return string(n) }

// Segment is one unit of parsed assistant output. Concrete segment types
// implement the unexported isSegment marker enabling a closed set.
type Segment interface {
	isSegment()
	// IsPartial reports whether the segment is the trailing, still-growing
	// piece of an in-progress buffer.
	IsPartial() bool
}

// TextSegment is literal assistant text between (or around) tool spans.
type TextSegment struct {
	Content string
	Partial bool
}

func (TextSegment) isSegment() {}

// IsPartial implements Segment.
func (s TextSegment) IsPartial() bool { return s.Partial }

// ToolSegment is a complete tool invocation with its parsed parameters.
type ToolSegment struct {
	Name       ToolName
	Parameters map[string]string
	Partial    bool
}

func (ToolSegment) isSegment() {}

// IsPartial implements Segment.
func (s ToolSegment) IsPartial() bool { return s.Partial }

// Param returns the trimmed parameter value for key or def when absent.
func (s ToolSegment) Param(key, def string) string {
	if v, ok := s.Parameters[key]; ok {
		return v
	}
	return def
}

// CountTools returns the number of tool invocation segments in segs.
func CountTools(segs []Segment) int {
	n := 0
	for _, seg := range segs {
		if _, ok := seg.(ToolSegment); ok {
			n++
		}
	}
	return n
}
