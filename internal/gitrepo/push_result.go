package gitrepo

import (
	"fmt"
	"strings"
)

// PushFlag is the single-character status git prints for each reference in porcelain mode.
type PushFlag string

// Reference status flags reported by git push --porcelain.
const (
	PushFlagFastForward PushFlag = " "
	PushFlagForced      PushFlag = "+"
	PushFlagDeleted     PushFlag = "-"
	PushFlagCreated     PushFlag = "*"
	PushFlagRejected    PushFlag = "!"
	PushFlagUpToDate    PushFlag = "="
)

const (
	porcelainFieldSeparatorConstant     = "\t"
	porcelainReferenceSeparatorConstant = ":"
	porcelainDoneLineConstant           = "Done"
	porcelainToPrefixConstant           = "To "
	porcelainSummaryOpenConstant        = "("
	porcelainSummaryCloseConstant       = ")"
	pushResultErrorTemplateConstant     = "expected exactly one reference status in push output, found %d"
	pushRejectedErrorTemplateConstant   = "push of %s was rejected: %s"
)

// PushReferenceUpdate describes one reference status line from git push --porcelain.
type PushReferenceUpdate struct {
	Flag            PushFlag
	SourceReference string
	TargetReference string
	Summary         string
	Reason          string
}

// Forced reports whether the remote reference was rewritten by a non-fast-forward update.
func (update PushReferenceUpdate) Forced() bool {
	return update.Flag == PushFlagForced
}

// PushResultError reports porcelain output that did not describe exactly one reference.
type PushResultError struct {
	ReferenceCount int
	Output         string
}

// Error describes the malformed push result.
func (resultError PushResultError) Error() string {
	return fmt.Sprintf(pushResultErrorTemplateConstant, resultError.ReferenceCount)
}

// PushRejectedError reports a reference update the remote refused.
type PushRejectedError struct {
	Update PushReferenceUpdate
}

// Error describes the rejected update.
func (rejectedError PushRejectedError) Error() string {
	return fmt.Sprintf(pushRejectedErrorTemplateConstant, rejectedError.Update.TargetReference, rejectedError.Update.Summary)
}

// ParsePushReferenceUpdates extracts every reference status line from git push --porcelain output.
func ParsePushReferenceUpdates(output string) []PushReferenceUpdate {
	updates := []PushReferenceUpdate{}
	for _, rawLine := range strings.Split(output, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if len(strings.TrimSpace(line)) == 0 || line == porcelainDoneLineConstant || strings.HasPrefix(line, porcelainToPrefixConstant) {
			continue
		}

		fields := strings.SplitN(line, porcelainFieldSeparatorConstant, 3)
		if len(fields) != 3 || len(fields[0]) != 1 {
			continue
		}

		references := strings.SplitN(fields[1], porcelainReferenceSeparatorConstant, 2)
		if len(references) != 2 {
			continue
		}

		summary := strings.TrimSpace(fields[2])
		update := PushReferenceUpdate{
			Flag:            PushFlag(fields[0]),
			SourceReference: references[0],
			TargetReference: references[1],
			Summary:         summary,
		}
		if openIndex := strings.Index(summary, porcelainSummaryOpenConstant); openIndex >= 0 && strings.HasSuffix(summary, porcelainSummaryCloseConstant) {
			update.Summary = strings.TrimSpace(summary[:openIndex])
			update.Reason = strings.TrimSuffix(summary[openIndex+1:], porcelainSummaryCloseConstant)
		}
		updates = append(updates, update)
	}
	return updates
}

// ParseSinglePushReferenceUpdate returns the only reference status in output.
func ParseSinglePushReferenceUpdate(output string) (PushReferenceUpdate, error) {
	updates := ParsePushReferenceUpdates(output)
	if len(updates) != 1 {
		return PushReferenceUpdate{}, PushResultError{ReferenceCount: len(updates), Output: output}
	}
	return updates[0], nil
}
