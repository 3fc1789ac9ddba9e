package vmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportSnapshot writes the ranked list as JSON to the dump directory and/or
// S3, depending on config. It returns the S3 url when uploaded.
func ExportSnapshot(ctx context.Context, config *Config, snapshot CentresListSnapshot) (url string, err error) {
	if !config.DumpOutput && !config.DumpOutputS3 {
		return "", nil
	}

	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(body)
	name := strings.NewReplacer(" ", "_", "(", "", ")", "", "/", "_").Replace(snapshot.Search.FormattedName())
	fileName := fmt.Sprintf("%s.%s.%s.json", name, time.Now().Format("20060102T150405"), hex.EncodeToString(hash[:])[:12])

	if config.DumpOutputS3 {
		if HasAWSCredentials() {
			url, err = PutS3Object(ctx, config.S3Bucket, fileName, "application/json", body)
			if err != nil {
				Log.Warnf("%v", err)
			} else {
				Log.Debugf("Sent %d bytes to S3: %s", len(body), url)
			}
		} else {
			Log.Warnf("Configured to send to S3 but no AWS credentials were found")
		}
	}

	if config.DumpOutput {
		if err := os.MkdirAll(config.DumpDir, 0755); err != nil {
			return url, fmt.Errorf("can't create dump dir %s: %w", config.DumpDir, err)
		}

		filePath := filepath.Join(config.DumpDir, fileName)
		if err := os.WriteFile(filePath, body, 0644); err != nil {
			return url, err
		}

		Log.Debugf("Wrote %d bytes to file: %s", len(body), filePath)
	}

	return url, nil
}
