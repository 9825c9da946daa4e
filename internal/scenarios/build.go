package scenarios

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const (
	progressNotificationMethodConstant = "notifications/progress"
	messageNotificationMethodConstant  = "notifications/message"
	progressTokenParameterConstant     = "progressToken"
	progressParameterConstant          = "progress"
	totalParameterConstant             = "total"
	levelParameterConstant             = "level"
	loggerParameterConstant            = "logger"
	dataParameterConstant              = "data"
	notificationLoggerNameConstant     = "build_image"
	progressTotalConstant              = 100.0

	buildingImageTemplateConstant      = "Building %s image: %s"
	builtImageTemplateConstant         = "Built %s image: %s"
	imageBuildStartedMessageConstant   = "Image build started"
	imageBuildFinishedMessageConstant  = "Image build finished"
	imageBuildProgressMessageConstant  = "Image build progress"
	notificationFailedMessageConstant  = "Unable to notify client"
	deliveryIncompleteMessageConstant  = "Client notifications not confirmed before responding"
	buildIdentifierLogFieldConstant    = "build_id"
	imageTypeLogFieldConstant          = "image_type"
	imageLogFieldConstant              = "image"
	progressLogFieldConstant           = "progress"
	notificationMethodLogFieldConstant = "method"
)

var buildProgressSteps = []float64{0, 20, 60, 100}

// NotificationSender delivers notifications to the client that issued the current request.
type NotificationSender interface {
	SendNotificationToClient(ctx context.Context, method string, params map[string]any) error
}

// NotificationSenderResolver locates the sender for the request carried by the context.
type NotificationSenderResolver func(ctx context.Context) NotificationSender

// ClientNotificationSender returns the MCP server handling the request, if any.
func ClientNotificationSender(ctx context.Context) NotificationSender {
	mcpServer := server.ServerFromContext(ctx)
	if mcpServer == nil {
		return nil
	}
	return mcpServer
}

// ImageBuildRequest identifies the image to build.
type ImageBuildRequest struct {
	ImageType     string
	Image         string
	ProgressToken mcp.ProgressToken
}

// ImageBuilder simulates an image build while reporting progress to the client.
type ImageBuilder struct {
	interval      time.Duration
	logger        *zap.Logger
	resolveSender NotificationSenderResolver
}

// NewImageBuilder constructs a builder waiting interval between progress steps.
func NewImageBuilder(interval time.Duration, logger *zap.Logger, resolveSender NotificationSenderResolver) *ImageBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolveSender == nil {
		resolveSender = ClientNotificationSender
	}
	return &ImageBuilder{interval: interval, logger: logger, resolveSender: resolveSender}
}

// Build announces the build, reports progress 0, 20, 60 and 100 out of 100, then announces completion.
func (builder *ImageBuilder) Build(ctx context.Context, request ImageBuildRequest) error {
	buildLogger := builder.logger.With(
		zap.String(buildIdentifierLogFieldConstant, uuid.NewString()),
		zap.String(imageTypeLogFieldConstant, request.ImageType),
		zap.String(imageLogFieldConstant, request.Image),
	)
	sender := builder.resolveSender(ctx)

	buildLogger.Info(imageBuildStartedMessageConstant)
	queuedNotifications := 0
	queuedNotifications += builder.notify(ctx, sender, buildLogger, messageNotificationMethodConstant, messageParameters(fmt.Sprintf(buildingImageTemplateConstant, request.ImageType, request.Image)))

	for stepIndex, progress := range buildProgressSteps {
		if stepIndex > 0 {
			if waitError := wait(ctx, builder.interval); waitError != nil {
				return waitError
			}
		}
		buildLogger.Debug(imageBuildProgressMessageConstant, zap.Float64(progressLogFieldConstant, progress))
		if request.ProgressToken == nil {
			continue
		}
		queuedNotifications += builder.notify(ctx, sender, buildLogger, progressNotificationMethodConstant, map[string]any{
			progressTokenParameterConstant: request.ProgressToken,
			progressParameterConstant:      progress,
			totalParameterConstant:         progressTotalConstant,
		})
	}

	queuedNotifications += builder.notify(ctx, sender, buildLogger, messageNotificationMethodConstant, messageParameters(fmt.Sprintf(builtImageTemplateConstant, request.ImageType, request.Image)))

	// The transport drops notifications still queued once the result is written.
	if deliveryError := awaitNotificationDelivery(ctx, queuedNotifications); deliveryError != nil {
		buildLogger.Debug(deliveryIncompleteMessageConstant, zap.Error(deliveryError))
	}
	buildLogger.Info(imageBuildFinishedMessageConstant)
	return nil
}

// notify reports the number of notifications handed to the transport.
func (builder *ImageBuilder) notify(ctx context.Context, sender NotificationSender, logger *zap.Logger, method string, parameters map[string]any) int {
	if sender == nil {
		return 0
	}
	if sendError := sender.SendNotificationToClient(ctx, method, parameters); sendError != nil {
		logger.Debug(notificationFailedMessageConstant, zap.String(notificationMethodLogFieldConstant, method), zap.Error(sendError))
		return 0
	}
	return 1
}

func messageParameters(message string) map[string]any {
	return map[string]any{
		levelParameterConstant:  string(mcp.LoggingLevelInfo),
		loggerParameterConstant: notificationLoggerNameConstant,
		dataParameterConstant:   message,
	}
}

func wait(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
