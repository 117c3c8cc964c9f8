package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jypelle/mkbdstatus/internal/images"
	"github.com/jypelle/mkbdstatus/internal/srv"
	"github.com/jypelle/mkbdstatus/internal/version"
	"github.com/sirupsen/logrus"
)

const configSuffix = "mkbdstatus"

func main() {

	// Logger
	logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true})

	mainCommand := filepath.Base(os.Args[0])

	// region Flags and Commands definition

	// Debug Mode
	debugMode := flag.Bool("d", false, "Enable debug mode")

	// Simulation Mode
	simulationMode := flag.Bool("s", false, "Enable simulation mode")

	// User config dir
	defaultConfigDir := "./." + configSuffix
	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		defaultConfigDir = filepath.Join(userConfigDir, configSuffix)
	}
	configDir := flag.String("c", defaultConfigDir, "Location of mkbdstatus config folder")

	// Usage
	flag.Usage = func() {
		fmt.Printf("\nUsage: %s [OPTIONS] [COMMAND]\n", mainCommand)
		fmt.Printf("\nA battery status display for the mkbd macropad\n")
		fmt.Printf("\nOptions:\n")
		flag.PrintDefaults()
		fmt.Printf("\nCommands:\n")
		fmt.Printf("  run       Run server\n")
		fmt.Printf("  convert   Convert a png into a packed 1-bit bitmap\n")
		fmt.Printf("  version   Show the version number\n")
		fmt.Printf("\nRun '%s COMMAND --help' for more information on a command.\n", mainCommand)
	}

	// run command
	runCmd := flag.NewFlagSet("run", flag.ExitOnError)

	runCmd.Usage = func() {
		fmt.Printf("\nUsage: %s run\n", mainCommand)
		fmt.Printf("\nRun the server\n")
	}

	// convert command
	convertCmd := flag.NewFlagSet("convert", flag.ExitOnError)
	convertPackage := convertCmd.String("p", "images", "Package of the generated file")
	convertVar := convertCmd.String("n", "SplashBitmap", "Name of the generated variable")
	convertWidth := convertCmd.Int("w", 0, "Resize to this width (0 keeps the ratio)")
	convertHeight := convertCmd.Int("h", 0, "Resize to this height (0 keeps the ratio)")
	convertOutput := convertCmd.String("o", "", "Output file (default stdout)")

	convertCmd.Usage = func() {
		fmt.Printf("\nUsage: %s convert [OPTIONS] PNG_FILE\n", mainCommand)
		fmt.Printf("\nConvert a png into Go source declaring a packed 1-bit bitmap\n")
		fmt.Printf("\nOptions:\n")
		convertCmd.PrintDefaults()
	}

	// version command
	versionCmd := flag.NewFlagSet("version", flag.ExitOnError)

	versionCmd.Usage = func() {
		fmt.Printf("\nUsage: %s version\n", mainCommand)
		fmt.Printf("\nShow the version information\n")
	}

	// endregion

	// region Flags and Commands Parsing
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	switch flag.Arg(0) {
	case "run":
		runCmd.Parse(flag.Args()[1:])
		if runCmd.NArg() > 0 {
			fmt.Printf("\n\"%s %s\" accepts no arguments\n", mainCommand, flag.Arg(0))
			runCmd.Usage()
			os.Exit(1)
		}
	case "convert":
		convertCmd.Parse(flag.Args()[1:])
		if convertCmd.NArg() != 1 {
			fmt.Printf("\n\"%s %s\" requires exactly 1 argument\n", mainCommand, flag.Arg(0))
			convertCmd.Usage()
			os.Exit(1)
		}
	case "version":
		versionCmd.Parse(flag.Args()[1:])
		if versionCmd.NArg() > 0 {
			fmt.Printf("\n\"%s %s\" accepts no arguments\n", mainCommand, flag.Arg(0))
			versionCmd.Usage()
			os.Exit(1)
		}
	default:
		fmt.Printf("\n%s is not a mkbdstatus command\n", flag.Args()[0])
		flag.Usage()
		os.Exit(1)
	}
	// endregion

	if *debugMode {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true, FullTimestamp: true, TimestampFormat: time.RFC3339Nano})
		logrus.Printf("Debug mode activated")
	}

	switch {
	case versionCmd.Parsed():
		fmt.Printf("Version %s\n", version.AppVersion.String())
	case convertCmd.Parsed():
		err := convert(convertCmd.Arg(0), *convertOutput, *convertPackage, *convertVar, *convertWidth, *convertHeight)
		if err != nil {
			logrus.Fatalf("Unable to convert %s: %v\n", convertCmd.Arg(0), err)
		}
	case runCmd.Parsed():
		// Create mkbdstatus server
		serverApp := srv.NewServerApp(*configDir, *debugMode, *simulationMode)

		// Listen stop signal
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGABRT, syscall.SIGHUP)

		serverApp.Start()

		sig := <-ch
		logrus.Infof("Received signal: %v", sig)
		serverApp.Stop()
	}

}

func convert(inputFilename string, outputFilename string, pkg string, varName string, width int, height int) error {
	input, err := os.Open(inputFilename)
	if err != nil {
		return err
	}
	defer input.Close()

	bitmap, err := images.ConvertPNG(input, width, height)
	if err != nil {
		return err
	}

	if outputFilename == "" {
		return images.WriteGoSource(os.Stdout, pkg, varName, bitmap)
	}

	output, err := os.Create(outputFilename)
	if err != nil {
		return err
	}
	err = images.WriteGoSource(output, pkg, varName, bitmap)
	if closeErr := output.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		logrus.Infof("Generated %s (%dx%d, %d bytes)", outputFilename, bitmap.Width, bitmap.Height, len(bitmap.Data))
	}
	return err
}
