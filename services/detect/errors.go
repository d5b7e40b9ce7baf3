package detect

import "fmt"

// JudgeError means the judge backend failed while classifying a
// section. It is fatal to the detection stage: reporting zero findings
// because the judge was down would be silently wrong.
type JudgeError struct {
	SectionID string
	Reason    string
	Err       error
}

func (e *JudgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("judge failed on %s: %s: %v", e.SectionID, e.Reason, e.Err)
	}
	return fmt.Sprintf("judge failed on %s: %s", e.SectionID, e.Reason)
}

func (e *JudgeError) Unwrap() error { return e.Err }
