package scenarios

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const (
	kickstartMarkerConstant            = "prepare_kickstart"
	bootcImageMarkerConstant           = "-bootc-"
	kickstartSuffixMarkerConstant      = ".ks"
	scenarioReadFailedMessageConstant  = "Unable to read scenario file"
	scenarioOutsideRootMessageConstant = "Scenario path is outside the scenario root"
	scenarioImagesFoundMessageConstant = "Extracted images used in scenario"
	scenarioLogFieldNameConstant       = "scenario"
	imageCountLogFieldNameConstant     = "image_count"
)

var (
	startImagePattern      = regexp.MustCompile(`start_image=(\S+)`)
	targetReferencePattern = regexp.MustCompile(`TARGET_REF:(\S+)`)
)

// ImageExtractor returns the image names a scenario mentions in one particular form.
type ImageExtractor func(content string) []string

// DefaultImageExtractors returns the extractors applied to every scenario.
func DefaultImageExtractors() []ImageExtractor {
	return []ImageExtractor{
		ExtractStartImages,
		ExtractKickstartImages,
		ExtractTargetReferences,
	}
}

// ExtractStartImages collects the values of start_image= assignments.
func ExtractStartImages(content string) []string {
	return submatches(startImagePattern, content)
}

// ExtractTargetReferences collects the values of TARGET_REF: assignments.
func ExtractTargetReferences(content string) []string {
	return submatches(targetReferencePattern, content)
}

// ExtractKickstartImages collects bootc image names passed to prepare_kickstart.
// Kickstart template names are skipped.
func ExtractKickstartImages(content string) []string {
	images := []string{}
	for _, line := range strings.Split(content, "\n") {
		if !strings.Contains(line, kickstartMarkerConstant) {
			continue
		}
		for _, word := range strings.Fields(line) {
			if strings.Contains(word, bootcImageMarkerConstant) && !strings.Contains(word, kickstartSuffixMarkerConstant) {
				images = append(images, word)
			}
		}
	}
	return images
}

// ExtractImages applies the extractors and returns their deduplicated, sorted union.
func ExtractImages(content string, extractors ...ImageExtractor) []string {
	if len(extractors) == 0 {
		extractors = DefaultImageExtractors()
	}

	unique := map[string]struct{}{}
	for _, extractor := range extractors {
		for _, image := range extractor(content) {
			unique[image] = struct{}{}
		}
	}

	images := make([]string, 0, len(unique))
	for image := range unique {
		images = append(images, image)
	}
	sort.Strings(images)
	return images
}

// ScenarioImageReader reads scenario files and reports the images they use.
type ScenarioImageReader struct {
	root       string
	extractors []ImageExtractor
	logger     *zap.Logger
}

// NewScenarioImageReader constructs a reader resolving scenarios relative to root.
func NewScenarioImageReader(root string, logger *zap.Logger, extractors ...ImageExtractor) (*ScenarioImageReader, error) {
	if len(root) == 0 {
		return nil, ErrRootNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(extractors) == 0 {
		extractors = DefaultImageExtractors()
	}
	return &ScenarioImageReader{root: root, extractors: extractors, logger: logger}, nil
}

// ImagesUsedInScenario returns the images referenced by the scenario file.
// Unreadable scenarios and paths that leave the root yield an empty list.
func (reader *ScenarioImageReader) ImagesUsedInScenario(scenario string) []string {
	if !filepath.IsLocal(scenario) {
		reader.logger.Warn(scenarioOutsideRootMessageConstant, zap.String(scenarioLogFieldNameConstant, scenario))
		return []string{}
	}

	content, readError := os.ReadFile(filepath.Join(reader.root, scenario))
	if readError != nil {
		reader.logger.Warn(
			scenarioReadFailedMessageConstant,
			zap.String(scenarioLogFieldNameConstant, scenario),
			zap.Error(readError),
		)
		return []string{}
	}

	images := ExtractImages(string(content), reader.extractors...)
	reader.logger.Debug(
		scenarioImagesFoundMessageConstant,
		zap.String(scenarioLogFieldNameConstant, scenario),
		zap.Int(imageCountLogFieldNameConstant, len(images)),
	)
	return images
}

func submatches(pattern *regexp.Regexp, content string) []string {
	matches := pattern.FindAllStringSubmatch(content, -1)
	values := make([]string, 0, len(matches))
	for _, match := range matches {
		values = append(values, match[1])
	}
	return values
}
