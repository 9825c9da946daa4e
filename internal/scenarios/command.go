package scenarios

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	commandUseConstant                      = "scenario-tools"
	commandShortDescriptionConstant         = "Serve the scenario tools over MCP streamable HTTP"
	commandLongDescriptionConstant          = "scenario-tools starts a Model Context Protocol server exposing test harness scenarios, the images they use, a simulated image build and the image catalog. The server runs until interrupted."
	unexpectedArgumentsErrorMessageConstant = "scenario-tools does not accept positional arguments"
	listenErrorTemplateConstant             = "listen on %s: %w"
	networkConstant                         = "tcp"
	serverStartingMessageConstant           = "Starting scenario tool server"

	hostFlagNameConstant  = "host"
	hostFlagUsageConstant = "Interface address to listen on"
	portFlagNameConstant  = "port"
	portFlagUsageConstant = "TCP port to listen on"
	rootFlagNameConstant  = "root"
	rootFlagUsageConstant = "Directory containing scenarios-bootc"
	rootLogFieldConstant  = "root"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current scenario tool server configuration.
type ConfigurationProvider func() Configuration

// ListenerProvider opens the listener the server accepts connections on.
type ListenerProvider func(ctx context.Context, address string) (net.Listener, error)

// CommandBuilder assembles the scenario-tools command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	ListenerProvider      ListenerProvider
	Version               string
}

// Build constructs the scenario-tools command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	defaults := DefaultConfiguration()
	command.Flags().String(hostFlagNameConstant, defaults.Host, hostFlagUsageConstant)
	command.Flags().Int(portFlagNameConstant, defaults.Port, portFlagUsageConstant)
	command.Flags().String(rootFlagNameConstant, defaults.Root, rootFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errors.New(unexpectedArgumentsErrorMessageConstant)
	}

	configuration, configurationError := builder.applyFlagOverrides(command, builder.resolveConfiguration())
	if configurationError != nil {
		return configurationError
	}
	configuration = configuration.Sanitize()

	logger := builder.resolveLogger()
	mcpServer, serverError := NewMCPServer(ServerDependencies{
		Logger:        logger,
		Configuration: configuration,
		Version:       builder.Version,
	})
	if serverError != nil {
		return serverError
	}

	handler, handlerError := NewHTTPHandler(mcpServer, configuration.Endpoint)
	if handlerError != nil {
		return handlerError
	}

	parentContext := command.Context()
	if parentContext == nil {
		parentContext = context.Background()
	}
	signalContext, stop := signal.NotifyContext(parentContext, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	address := configuration.Address()
	listener, listenError := builder.resolveListenerProvider()(signalContext, address)
	if listenError != nil {
		return fmt.Errorf(listenErrorTemplateConstant, address, listenError)
	}

	logger.Info(
		serverStartingMessageConstant,
		zap.String(addressLogFieldNameConstant, address),
		zap.String(endpointLogFieldNameConstant, configuration.Endpoint),
		zap.String(rootLogFieldConstant, configuration.Root),
	)
	return Serve(signalContext, listener, handler, logger)
}

func (builder *CommandBuilder) applyFlagOverrides(command *cobra.Command, configuration Configuration) (Configuration, error) {
	flagSet := command.Flags()
	if flagSet.Changed(hostFlagNameConstant) {
		host, hostError := flagSet.GetString(hostFlagNameConstant)
		if hostError != nil {
			return configuration, hostError
		}
		configuration.Host = host
	}
	if flagSet.Changed(portFlagNameConstant) {
		port, portError := flagSet.GetInt(portFlagNameConstant)
		if portError != nil {
			return configuration, portError
		}
		configuration.Port = port
	}
	if flagSet.Changed(rootFlagNameConstant) {
		root, rootError := flagSet.GetString(rootFlagNameConstant)
		if rootError != nil {
			return configuration, rootError
		}
		configuration.Root = root
	}
	return configuration, nil
}

func (builder *CommandBuilder) resolveListenerProvider() ListenerProvider {
	if builder.ListenerProvider != nil {
		return builder.ListenerProvider
	}
	return func(ctx context.Context, address string) (net.Listener, error) {
		var listenConfig net.ListenConfig
		return listenConfig.Listen(ctx, networkConstant, address)
	}
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	return resolveLogger(builder.LoggerProvider())
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	if builder.ConfigurationProvider == nil {
		return DefaultConfiguration()
	}
	return builder.ConfigurationProvider()
}
