package gene

import (
	"fmt"
	"regexp"
	"strings"
)

// SourceMethod identifies which transcript-production method an alignment
// id came from.
type SourceMethod string

const (
	SourceTransMap SourceMethod = "transMap"
	SourceAugTM    SourceMethod = "augTM"
	SourceAugTMR   SourceMethod = "augTMR"
	SourceAugCGP   SourceMethod = "augCGP"
)

var (
	runSuffixRe       = regexp.MustCompile(`-[0-9]+$`)
	predictorPrefixRe = regexp.MustCompile(`^aug(TM|TMR|CGP)-`)
)

// StripRunSuffix removes the trailing alignment-run number, turning
// ENSMUST00000169901.2-1 into ENSMUST00000169901.2.
func StripRunSuffix(alnID string) string {
	return runSuffixRe.ReplaceAllString(alnID, "")
}

// StripPredictorPrefix removes the aug(TM|TMR|CGP)- prediction-tool prefix.
func StripPredictorPrefix(alnID string) string {
	return predictorPrefixRe.ReplaceAllString(alnID, "")
}

// StripAlignmentID reduces an alignment id to its base reference transcript
// id. The predictor prefix is stripped first, then the numeric run suffix.
func StripAlignmentID(alnID string) string {
	return StripRunSuffix(StripPredictorPrefix(alnID))
}

// ParseAlignmentID returns the base reference transcript id of an alignment
// id together with its source method. Prediction-only (augCGP) ids carry no
// reference transcript at all; for those the base id is returned unchanged
// and pairing must go through the gene→transcript map instead.
func ParseAlignmentID(alnID string) (string, SourceMethod, error) {
	switch {
	case strings.HasPrefix(alnID, "augTMR-"):
		return StripAlignmentID(alnID), SourceAugTMR, nil
	case strings.HasPrefix(alnID, "augTM-"):
		return StripAlignmentID(alnID), SourceAugTM, nil
	case strings.HasPrefix(alnID, "jg"):
		return alnID, SourceAugCGP, nil
	case runSuffixRe.MatchString(alnID):
		return StripRunSuffix(alnID), SourceTransMap, nil
	default:
		return "", "", fmt.Errorf("alignment id %q is not valid", alnID)
	}
}
