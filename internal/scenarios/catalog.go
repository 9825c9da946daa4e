package scenarios

const (
	// TechnologyBootc selects bootc based images.
	TechnologyBootc = "bootc"
	// TechnologyOstree selects ostree based images.
	TechnologyOstree = "ostree"

	technologyFieldNameConstant = "technology"
)

var imageCatalog = []string{
	"rhel94-test-agent",
	"rhel96-test-agent",
	"rhel94-bootc-prel",
	"rhel94-bootc-yminus2",
	"rhel96-bootc-brew",
	"rhel96-bootc-crel-optionals",
	"rhel96-bootc-crel",
	"microshift-copy-images.conf.template",
	"microshift-copy-images.template",
	"rhel96-bootc-crel-isolated",
	"cos9-bootc-source",
	"microshift-ovsdb-ownership.conf.template",
	"rhel96-bootc-source-base",
	"rhel96-bootc-source",
	"rhel96-bootc-source-aux",
	"rhel96-bootc-source-fake-next-minor",
	"rhel96-bootc-source-fips",
	"rhel96-bootc-source-optionals",
	"rhel96-bootc-source-ai-model-serving",
	"rhel96-bootc-source-isolated",
	"cos9-bootc-source-fips",
	"cos9-bootc-source-flannel",
	"cos9-bootc-source-isolated",
	"cos9-bootc-source-optionals",
}

// Technologies lists the accepted image technologies.
func Technologies() []string {
	return []string{TechnologyBootc, TechnologyOstree}
}

// CatalogImages returns the images known to the test harness.
// The technology is validated but does not narrow the result.
func CatalogImages(technology string) ([]string, error) {
	if choiceError := requireChoice(technologyFieldNameConstant, technology, Technologies()); choiceError != nil {
		return nil, choiceError
	}
	images := make([]string, len(imageCatalog))
	copy(images, imageCatalog)
	return images, nil
}
