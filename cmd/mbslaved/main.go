// Command mbslaved runs one or two Modbus RTU slave instances against a
// real serial line, wiring the mbrtu engine to the serialio host adapter.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/spf13/viper"
	"go.bug.st/serial"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	mbrtu "github.com/rolfl/mbrtu"
	"github.com/rolfl/mbrtu/serialio"
)

type cliOptions struct {
	ConfigFile string `short:"c" long:"config" description:"path to a YAML config file" default:"mbslaved.yaml"`
	Verbose    bool   `short:"v" long:"verbose" description:"enable debug logging"`
}

type daemonConfig struct {
	Device         string `mapstructure:"device"`
	BaudRate       int    `mapstructure:"baud_rate"`
	SlaveAddr      int    `mapstructure:"slave_addr"`
	SecondInstance bool   `mapstructure:"second_instance"`
	SecondAddr     int    `mapstructure:"second_addr"`
	RS485Enabled   bool   `mapstructure:"rs485_enabled"`
	RS485Pin       int    `mapstructure:"rs485_pin"`
	RS485TxHigh    bool   `mapstructure:"rs485_tx_high"`
	HoldingCount   int    `mapstructure:"holding_count"`
	InputCount     int    `mapstructure:"input_count"`
	CoilCount      int    `mapstructure:"coil_count"`
	DiscreteCount  int    `mapstructure:"discrete_count"`
	LogDir         string `mapstructure:"log_dir"`
}

func defaultConfig() daemonConfig {
	return daemonConfig{
		Device:        "/dev/ttyUSB0",
		BaudRate:      9600,
		SlaveAddr:     1,
		SecondAddr:    2,
		RS485Pin:      17,
		RS485TxHigh:   true,
		HoldingCount:  64,
		InputCount:    64,
		CoilCount:     64,
		DiscreteCount: 64,
	}
}

func loadConfig(path string) (daemonConfig, error) {
	cfg := defaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MBSLAVED")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("mbslaved: read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("mbslaved: parse config %s: %w", path, err)
	}
	return cfg, nil
}

func newLogger(verbose bool, logDir string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(os.Stdout),
		level,
	)
	cores := []zapcore.Core{consoleCore}
	if logDir != "" {
		rotator := &lumberjack.Logger{
			Filename:   logDir + "/mbslaved.log",
			MaxSize:    20,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotator),
			level,
		)
		cores = append(cores, fileCore)
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}

func buildInstance(addr byte, port *serialio.Port, direction serialio.Direction, rf *mbrtu.RegisterFile, rs485 mbrtu.RS485Config) (*mbrtu.Instance, error) {
	ins := mbrtu.NewInstance()
	// The Link must be able to reach this Instance's OnTxComplete for the
	// DMA transmit path, so it is built after the Instance exists rather
	// than passed in.
	link := serialio.NewLink(port, direction, ins)
	cfg := mbrtu.Config{
		Link:         link,
		SlaveAddr:    addr,
		BaudRate:     9600,
		RxBufA:       make([]byte, 256),
		RxBufB:       make([]byte, 256),
		TxBuf:        make([]byte, 256),
		RegisterFile: rf,
		RS485:        rs485,
		Options:      mbrtu.RuntimeOptions{UseCRCTable: true},
	}
	if err := ins.Init(cfg); err != nil {
		return nil, err
	}
	ins.SetCustomConfigCB(mbrtu.DefaultCustomConfig(ins))
	return ins, nil
}

func run() error {
	var opts cliOptions
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.Parse(); err != nil {
		return err
	}

	cfg, err := loadConfig(opts.ConfigFile)
	if err != nil {
		return err
	}

	logger, err := newLogger(opts.Verbose, cfg.LogDir)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var direction serialio.Direction
	if cfg.RS485Enabled {
		if err := serialio.OpenRS485GPIO(); err != nil {
			return err
		}
		defer serialio.CloseRS485GPIO()
		direction = serialio.NewRS485GPIO(cfg.RS485Pin, cfg.RS485TxHigh)
	}

	port, err := serialio.Open(serialio.Config{
		Device:   cfg.Device,
		BaudRate: cfg.BaudRate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}, logger)
	if err != nil {
		return err
	}
	defer port.Close()

	rf := mbrtu.NewRegisterFile(cfg.CoilCount, cfg.DiscreteCount, cfg.HoldingCount, cfg.InputCount)
	defer rf.Close()

	rs485 := mbrtu.RS485Config{Enabled: cfg.RS485Enabled}

	instances := make([]*mbrtu.Instance, 0, 2)

	ins1, err := buildInstance(byte(cfg.SlaveAddr), port, direction, rf, rs485)
	if err != nil {
		return err
	}
	instances = append(instances, ins1)
	logger.Info("instance started", zap.Int("slave_addr", cfg.SlaveAddr), zap.String("device", cfg.Device))

	if cfg.SecondInstance {
		ins2, err := buildInstance(byte(cfg.SecondAddr), port, direction, rf, rs485)
		if err != nil {
			return err
		}
		instances = append(instances, ins2)
		logger.Info("second instance sharing register file", zap.Int("slave_addr", cfg.SecondAddr))
	}

	stop := make(chan struct{})
	// Every instance on this bus sees the same byte run (RS-485 is shared
	// medium); each decides independently, via its own address filter,
	// whether to respond.
	reader := serialio.NewIdleLineReader(port, cfg.BaudRate, func(frame []byte) {
		for _, ins := range instances {
			ins.DeliverByteRun(frame)
		}
	}, logger)
	go reader.Run(stop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			close(stop)
			return nil
		case <-ticker.C:
			for _, ins := range instances {
				ins.Process(ctx)
				if saved, pending := ins.PendingConfigSave(); pending {
					logger.Info("deferred config save", zap.Uint8("slave_addr", saved.SlaveAddr), zap.Uint32("baud_rate", saved.BaudRate))
					ins.ClearPendingConfigSave()
				}
			}
		}
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
