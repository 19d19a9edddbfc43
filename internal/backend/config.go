package backend

import (
	"errors"
	"fmt"

	"finreport/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	source := SourceType(appConfig.TransactionSource)
	if !source.IsValid() {
		return Config{}, fmt.Errorf("invalid transaction source in config: %s (valid: %v)", appConfig.TransactionSource, GetSourceTypeStrings())
	}

	sinks := make([]SinkType, 0, len(appConfig.ReportSinks))
	for _, s := range appConfig.ReportSinks {
		st := SinkType(s)
		if !st.IsValid() {
			return Config{}, fmt.Errorf("invalid report sink in config: %s", s)
		}
		sinks = append(sinks, st)
	}

	return Config{
		Source: source,

		DataDir:      appConfig.DataDir,
		FixturesFile: appConfig.FixturesFile,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleOAuthClientJSON:    appConfig.GoogleOAuthClientJSON,
		GoogleOAuthClientFile:    appConfig.GoogleOAuthClientFile,
		GoogleOAuthTokenJSON:     appConfig.GoogleOAuthTokenJSON,
		GoogleOAuthTokenFile:     appConfig.GoogleOAuthTokenFile,

		CacheTTL:  appConfig.LoaderCacheTTL,
		CacheSize: appConfig.LoaderCacheSize,

		Sinks:        sinks,
		ReportFile:   appConfig.ReportFile,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Source.IsValid() {
		return fmt.Errorf("invalid transaction source: %s", c.Source)
	}

	switch c.Source {
	case ExcelSource:
		if c.DataDir == "" {
			return errors.New("data directory is required for excel source")
		}
	case SheetsSource:
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for sheets source")
		}
		hasServiceAccount := c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
		hasOAuth := (c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != "") &&
			(c.GoogleOAuthTokenJSON != "" || c.GoogleOAuthTokenFile != "")
		if !hasServiceAccount && !hasOAuth {
			return errors.New("either GoogleServiceAccountJSON or GoogleServiceAccountFile, or an OAuth client and token, must be provided for sheets source")
		}
	case MemorySource:
		// an empty fixtures file yields an empty store
	}

	for _, s := range c.Sinks {
		switch s {
		case FileSink:
			if c.ReportFile == "" {
				return errors.New("report file is required for file sink")
			}
		case SQLiteSink:
			if c.SQLiteDBPath == "" {
				return errors.New("SQLite database path is required for sqlite sink")
			}
		case AMQPSink:
			if c.AMQPURL == "" {
				return errors.New("AMQP URL is required for amqp sink")
			}
		default:
			return fmt.Errorf("invalid report sink: %s", s)
		}
	}

	return nil
}

// GetSourceTypeStrings returns all valid source type strings
func GetSourceTypeStrings() []string {
	types := []SourceType{ExcelSource, SheetsSource, MemorySource}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
