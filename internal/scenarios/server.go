package scenarios

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const (
	// ServerName identifies the tool server to its clients.
	ServerName = "microshift-test-harness"

	defaultServerVersionConstant = "dev"

	getScenariosToolNameConstant         = "get_scenarios"
	getScenariosDescriptionConstant      = "Get a list of scenarios for a given type"
	scenarioTypeDescriptionConstant      = "Type of scenarios"
	getScenarioImagesToolNameConstant    = "get_images_used_in_scenario"
	getScenarioImagesDescriptionConstant = "Get a list of images used in a given scenario"
	scenarioArgumentNameConstant         = "scenario"
	scenarioArgumentDescriptionConstant  = "Scenario path relative to the scenario root"
	buildImageToolNameConstant           = "build_image"
	buildImageDescriptionConstant        = "Build a bootc image for test harness"
	imageTypeArgumentNameConstant        = "type"
	imageTypeArgumentDescriptionConstant = "Type of the image"
	imageArgumentNameConstant            = "image"
	imageArgumentDescriptionConstant     = "Name of the image"
	getImagesToolNameConstant            = "get_images"
	getImagesDescriptionConstant         = "Get a list of images involved in the test harness"
	technologyDescriptionConstant        = "Technology of images"
	greetingTemplateURIConstant          = "greeting://{name}"
	greetingResourceNameConstant         = "get_greeting"
	greetingDescriptionConstant          = "Get a personalized greeting"
	greetingMIMETypeConstant             = "text/plain"
	greetingNameArgumentConstant         = "name"
	greetingTemplateConstant             = "Hello, %s!"
	greetingSchemePrefixConstant         = "greeting://"
	toolCalledMessageConstant            = "Tool called"
	toolLogFieldNameConstant             = "tool"
)

// ServerDependencies supplies the collaborators of the tool server.
type ServerDependencies struct {
	Logger                     *zap.Logger
	Configuration              Configuration
	Version                    string
	NotificationSenderResolver NotificationSenderResolver
}

// NewMCPServer registers the scenario tools and the greeting resource on a new MCP server.
func NewMCPServer(dependencies ServerDependencies) (*server.MCPServer, error) {
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	configuration := dependencies.Configuration.Sanitize()

	lister, listerError := NewScenarioLister(configuration.Root, logger)
	if listerError != nil {
		return nil, listerError
	}
	reader, readerError := NewScenarioImageReader(configuration.Root, logger)
	if readerError != nil {
		return nil, readerError
	}
	builder := NewImageBuilder(configuration.ProgressInterval, logger, dependencies.NotificationSenderResolver)

	version := dependencies.Version
	if len(version) == 0 {
		version = defaultServerVersionConstant
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithLogging(),
		server.WithRecovery(),
	)

	scenariosTool := NewScenariosTool(lister, logger)
	mcpServer.AddTool(scenariosTool.Definition(), scenariosTool.Handle)

	scenarioImagesTool := NewScenarioImagesTool(reader, logger)
	mcpServer.AddTool(scenarioImagesTool.Definition(), scenarioImagesTool.Handle)

	buildImageTool := NewBuildImageTool(builder, logger)
	mcpServer.AddTool(buildImageTool.Definition(), buildImageTool.Handle)

	imagesTool := NewImagesTool(logger)
	mcpServer.AddTool(imagesTool.Definition(), imagesTool.Handle)

	greeting := GreetingResource{}
	mcpServer.AddResourceTemplate(greeting.Definition(), greeting.Handle)

	return mcpServer, nil
}

// ScenariosTool implements get_scenarios.
type ScenariosTool struct {
	lister *ScenarioLister
	logger *zap.Logger
}

// NewScenariosTool constructs the get_scenarios tool.
func NewScenariosTool(lister *ScenarioLister, logger *zap.Logger) *ScenariosTool {
	return &ScenariosTool{lister: lister, logger: resolveLogger(logger)}
}

// Definition describes the tool.
func (tool *ScenariosTool) Definition() mcp.Tool {
	return mcp.NewTool(
		getScenariosToolNameConstant,
		mcp.WithDescription(getScenariosDescriptionConstant),
		mcp.WithString(
			scenarioTypeFieldNameConstant,
			mcp.Required(),
			mcp.Enum(ScenarioTypes()...),
			mcp.Description(scenarioTypeDescriptionConstant),
		),
	)
}

// Handle lists the scenarios of the requested type.
func (tool *ScenariosTool) Handle(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tool.logger.Debug(toolCalledMessageConstant, zap.String(toolLogFieldNameConstant, getScenariosToolNameConstant))

	scenarioType, argumentError := request.RequireString(scenarioTypeFieldNameConstant)
	if argumentError != nil {
		return mcp.NewToolResultError(argumentError.Error()), nil
	}

	scenarioPaths, listError := tool.lister.ListScenarios(scenarioType)
	if listError != nil {
		return mcp.NewToolResultError(listError.Error()), nil
	}
	return mcp.NewToolResultJSON(scenarioPaths)
}

// ScenarioImagesTool implements get_images_used_in_scenario.
type ScenarioImagesTool struct {
	reader *ScenarioImageReader
	logger *zap.Logger
}

// NewScenarioImagesTool constructs the get_images_used_in_scenario tool.
func NewScenarioImagesTool(reader *ScenarioImageReader, logger *zap.Logger) *ScenarioImagesTool {
	return &ScenarioImagesTool{reader: reader, logger: resolveLogger(logger)}
}

// Definition describes the tool.
func (tool *ScenarioImagesTool) Definition() mcp.Tool {
	return mcp.NewTool(
		getScenarioImagesToolNameConstant,
		mcp.WithDescription(getScenarioImagesDescriptionConstant),
		mcp.WithString(
			scenarioArgumentNameConstant,
			mcp.Required(),
			mcp.Description(scenarioArgumentDescriptionConstant),
		),
	)
}

// Handle returns the images referenced by the scenario.
func (tool *ScenarioImagesTool) Handle(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tool.logger.Debug(toolCalledMessageConstant, zap.String(toolLogFieldNameConstant, getScenarioImagesToolNameConstant))

	scenario, argumentError := request.RequireString(scenarioArgumentNameConstant)
	if argumentError != nil {
		return mcp.NewToolResultError(argumentError.Error()), nil
	}
	return mcp.NewToolResultJSON(tool.reader.ImagesUsedInScenario(scenario))
}

// BuildImageTool implements build_image.
type BuildImageTool struct {
	builder *ImageBuilder
	logger  *zap.Logger
}

// NewBuildImageTool constructs the build_image tool.
func NewBuildImageTool(builder *ImageBuilder, logger *zap.Logger) *BuildImageTool {
	return &BuildImageTool{builder: builder, logger: resolveLogger(logger)}
}

// Definition describes the tool.
func (tool *BuildImageTool) Definition() mcp.Tool {
	return mcp.NewTool(
		buildImageToolNameConstant,
		mcp.WithDescription(buildImageDescriptionConstant),
		mcp.WithString(imageTypeArgumentNameConstant, mcp.Required(), mcp.Description(imageTypeArgumentDescriptionConstant)),
		mcp.WithString(imageArgumentNameConstant, mcp.Required(), mcp.Description(imageArgumentDescriptionConstant)),
	)
}

// Handle runs the simulated build, streaming notifications to the caller.
func (tool *BuildImageTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tool.logger.Debug(toolCalledMessageConstant, zap.String(toolLogFieldNameConstant, buildImageToolNameConstant))

	imageType, typeError := request.RequireString(imageTypeArgumentNameConstant)
	if typeError != nil {
		return mcp.NewToolResultError(typeError.Error()), nil
	}
	image, imageError := request.RequireString(imageArgumentNameConstant)
	if imageError != nil {
		return mcp.NewToolResultError(imageError.Error()), nil
	}

	buildRequest := ImageBuildRequest{ImageType: imageType, Image: image}
	if request.Params.Meta != nil {
		buildRequest.ProgressToken = request.Params.Meta.ProgressToken
	}
	if buildError := tool.builder.Build(ctx, buildRequest); buildError != nil {
		return mcp.NewToolResultError(buildError.Error()), nil
	}
	return &mcp.CallToolResult{Content: []mcp.Content{}}, nil
}

// ImagesTool implements get_images.
type ImagesTool struct {
	logger *zap.Logger
}

// NewImagesTool constructs the get_images tool.
func NewImagesTool(logger *zap.Logger) *ImagesTool {
	return &ImagesTool{logger: resolveLogger(logger)}
}

// Definition describes the tool.
func (tool *ImagesTool) Definition() mcp.Tool {
	return mcp.NewTool(
		getImagesToolNameConstant,
		mcp.WithDescription(getImagesDescriptionConstant),
		mcp.WithString(
			technologyFieldNameConstant,
			mcp.Required(),
			mcp.Enum(Technologies()...),
			mcp.Description(technologyDescriptionConstant),
		),
	)
}

// Handle returns the image catalog.
func (tool *ImagesTool) Handle(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tool.logger.Debug(toolCalledMessageConstant, zap.String(toolLogFieldNameConstant, getImagesToolNameConstant))

	technology, argumentError := request.RequireString(technologyFieldNameConstant)
	if argumentError != nil {
		return mcp.NewToolResultError(argumentError.Error()), nil
	}

	images, catalogError := CatalogImages(technology)
	if catalogError != nil {
		return mcp.NewToolResultError(catalogError.Error()), nil
	}
	return mcp.NewToolResultJSON(images)
}

// GreetingResource serves greeting://{name}.
type GreetingResource struct{}

// Definition describes the resource template.
func (GreetingResource) Definition() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		greetingTemplateURIConstant,
		greetingResourceNameConstant,
		mcp.WithTemplateDescription(greetingDescriptionConstant),
		mcp.WithTemplateMIMEType(greetingMIMETypeConstant),
	)
}

// Handle renders the greeting for the name in the requested URI.
func (GreetingResource) Handle(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	name := greetingName(request)
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: greetingMIMETypeConstant,
			Text:     fmt.Sprintf(greetingTemplateConstant, name),
		},
	}, nil
}

func greetingName(request mcp.ReadResourceRequest) string {
	switch value := request.Params.Arguments[greetingNameArgumentConstant].(type) {
	case string:
		return value
	case []string:
		if len(value) > 0 {
			return value[0]
		}
	}
	return strings.TrimPrefix(request.Params.URI, greetingSchemePrefixConstant)
}

func resolveLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
