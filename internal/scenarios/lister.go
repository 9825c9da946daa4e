package scenarios

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	// ScenarioTypePeriodics selects the periodic scenarios.
	ScenarioTypePeriodics = "periodics"
	// ScenarioTypePresubmits selects the presubmit scenarios.
	ScenarioTypePresubmits = "presubmits"

	scenariosDirectoryConstant         = "scenarios-bootc"
	scenarioTypeFieldNameConstant      = "type"
	listScenariosErrorTemplateConstant = "list %s scenarios: %w"
	scenariosListedMessageConstant     = "Listed scenarios"
	scenarioTypeLogFieldNameConstant   = "scenario_type"
	scenarioCountLogFieldNameConstant  = "scenario_count"
	scenarioDirectoryLogFieldConstant  = "directory"
)

// ErrRootNotConfigured indicates that no scenario root directory was provided.
var ErrRootNotConfigured = errors.New("scenario root not configured")

// ScenarioTypes lists the accepted scenario types.
func ScenarioTypes() []string {
	return []string{ScenarioTypePeriodics, ScenarioTypePresubmits}
}

// ScenarioLister enumerates scenario files below the scenario root.
type ScenarioLister struct {
	root   string
	logger *zap.Logger
}

// NewScenarioLister constructs a lister rooted at the provided directory.
func NewScenarioLister(root string, logger *zap.Logger) (*ScenarioLister, error) {
	if len(root) == 0 {
		return nil, ErrRootNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScenarioLister{root: root, logger: logger}, nil
}

// ListScenarios returns the entries of scenarios-bootc/<type>/ as root-relative paths.
func (lister *ScenarioLister) ListScenarios(scenarioType string) ([]string, error) {
	if choiceError := requireChoice(scenarioTypeFieldNameConstant, scenarioType, ScenarioTypes()); choiceError != nil {
		return nil, choiceError
	}

	directory := filepath.Join(lister.root, scenariosDirectoryConstant, scenarioType)
	entries, readError := os.ReadDir(directory)
	if readError != nil {
		return nil, fmt.Errorf(listScenariosErrorTemplateConstant, scenarioType, readError)
	}

	scenarioPaths := make([]string, 0, len(entries))
	for _, entry := range entries {
		scenarioPaths = append(scenarioPaths, path.Join(scenariosDirectoryConstant, scenarioType, entry.Name()))
	}

	lister.logger.Debug(
		scenariosListedMessageConstant,
		zap.String(scenarioTypeLogFieldNameConstant, scenarioType),
		zap.String(scenarioDirectoryLogFieldConstant, directory),
		zap.Int(scenarioCountLogFieldNameConstant, len(scenarioPaths)),
	)
	return scenarioPaths, nil
}
