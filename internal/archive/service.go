package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	bundlePrefix     = "vigil-reports-"
	bundleTimeLayout = "2006-01-02-150405"
	minBundlesToKeep = 3
	manifestFilename = "manifest.json"
	stagingDirName   = "archive-staging"
)

// Manifest describes the files inside one bundle.
type Manifest struct {
	RunID     string         `json:"run_id"`
	Pipeline  string         `json:"pipeline"`
	AsOf      string         `json:"as_of"`
	CreatedAt time.Time      `json:"created_at"`
	Files     []FileMetadata `json:"files"`
}

// FileMetadata records one archived file's size and checksum.
type FileMetadata struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BundleInfo describes a bundle stored in the bucket.
type BundleInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// Service creates, uploads, lists, and rotates report bundles.
type Service struct {
	store   BundleStore
	dataDir string
	log     zerolog.Logger
}

// NewService creates a new archive service
func NewService(store BundleStore, dataDir string, log zerolog.Logger) *Service {
	return &Service{
		store:   store,
		dataDir: dataDir,
		log:     log.With().Str("service", "archive").Logger(),
	}
}

// ArchiveRun bundles the run's report files with a manifest and uploads the
// tar.gz to object storage.
func (s *Service) ArchiveRun(ctx context.Context, runID, pipeline, asOf string, files []string) error {
	s.log.Info().Str("run_id", runID).Int("files", len(files)).Msg("Starting report archive")
	startTime := time.Now()

	stagingDir := filepath.Join(s.dataDir, stagingDirName)
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	archivePath, manifest, err := s.buildBundle(stagingDir, runID, pipeline, asOf, files)
	if err != nil {
		return err
	}

	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return fmt.Errorf("failed to stat archive: %w", err)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	bundleName := filepath.Base(archivePath)
	if err := s.store.Upload(ctx, bundleName, archiveFile); err != nil {
		return fmt.Errorf("failed to upload bundle: %w", err)
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("bundle", bundleName).
		Int("files", len(manifest.Files)).
		Int64("size_bytes", archiveInfo.Size()).
		Msg("Report archive completed")

	return nil
}

// buildBundle writes the manifest and the tar.gz into stagingDir and returns
// the archive path.
func (s *Service) buildBundle(stagingDir, runID, pipeline, asOf string, files []string) (string, Manifest, error) {
	manifest := Manifest{
		RunID:     runID,
		Pipeline:  pipeline,
		AsOf:      asOf,
		CreatedAt: time.Now().UTC(),
		Files:     make([]FileMetadata, 0, len(files)),
	}

	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			return "", manifest, fmt.Errorf("failed to stat report file %s: %w", file, err)
		}
		checksum, err := s.calculateChecksum(file)
		if err != nil {
			return "", manifest, fmt.Errorf("failed to checksum %s: %w", file, err)
		}
		manifest.Files = append(manifest.Files, FileMetadata{
			Name:      filepath.Base(file),
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
	}

	manifestPath := filepath.Join(stagingDir, manifestFilename)
	if err := s.writeManifest(manifestPath, manifest); err != nil {
		return "", manifest, fmt.Errorf("failed to write manifest: %w", err)
	}

	archiveName := bundlePrefix + time.Now().UTC().Format(bundleTimeLayout) + ".tar.gz"
	archivePath := filepath.Join(stagingDir, archiveName)
	if err := s.createArchive(archivePath, append([]string{manifestPath}, files...)); err != nil {
		return "", manifest, fmt.Errorf("failed to create archive: %w", err)
	}

	return archivePath, manifest, nil
}

// ListBundles lists all report bundles in the bucket, newest first.
func (s *Service) ListBundles(ctx context.Context) ([]BundleInfo, error) {
	objects, err := s.store.List(ctx, bundlePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list bundles: %w", err)
	}

	bundles := make([]BundleInfo, 0, len(objects))
	now := time.Now()

	for _, obj := range objects {
		if obj.Key == nil {
			continue
		}

		filename := path.Base(*obj.Key)
		timestamp, ok := parseBundleName(filename)
		if !ok {
			s.log.Warn().Str("filename", filename).Msg("Skipping unparseable bundle name")
			continue
		}

		var sizeBytes int64
		if obj.Size != nil {
			sizeBytes = *obj.Size
		}

		bundles = append(bundles, BundleInfo{
			Key:       filename,
			Timestamp: timestamp,
			SizeBytes: sizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(bundles, func(i, j int) bool {
		return bundles[i].Timestamp.After(bundles[j].Timestamp)
	})
	return bundles, nil
}

// RotateOldBundles deletes bundles older than the retention period, always
// keeping the newest three regardless of age. retentionDays of 0 keeps
// everything.
func (s *Service) RotateOldBundles(ctx context.Context, retentionDays int) error {
	s.log.Info().Int("retention_days", retentionDays).Msg("Starting bundle rotation")

	bundles, err := s.ListBundles(ctx)
	if err != nil {
		return err
	}

	if len(bundles) <= minBundlesToKeep || retentionDays <= 0 {
		s.log.Info().Int("count", len(bundles)).Msg("Nothing to rotate")
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for i, bundle := range bundles {
		if i < minBundlesToKeep {
			continue
		}
		if !bundle.Timestamp.Before(cutoff) {
			continue
		}

		if err := s.store.Delete(ctx, bundle.Key); err != nil {
			s.log.Error().Err(err).Str("key", bundle.Key).Msg("Failed to delete old bundle")
			continue
		}
		s.log.Info().Str("key", bundle.Key).Time("timestamp", bundle.Timestamp).Msg("Deleted old bundle")
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(bundles)-deleted).
		Msg("Bundle rotation completed")
	return nil
}

// parseBundleName extracts the timestamp from vigil-reports-<ts>.tar.gz.
func parseBundleName(filename string) (time.Time, bool) {
	if !strings.HasPrefix(filename, bundlePrefix) || !strings.HasSuffix(filename, ".tar.gz") {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(filename, bundlePrefix), ".tar.gz")
	timestamp, err := time.Parse(bundleTimeLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return timestamp, true
}

func (s *Service) calculateChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func (s *Service) writeManifest(path string, manifest Manifest) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(manifest)
}

// createArchive writes the named files into a tar.gz, each under its base
// name.
func (s *Service) createArchive(archivePath string, files []string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	for _, file := range files {
		if err := s.addFileToArchive(tarWriter, file, filepath.Base(file)); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", filepath.Base(file), err)
		}
	}
	return nil
}

func (s *Service) addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}
	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}
	if _, err := io.Copy(tarWriter, file); err != nil {
		return err
	}
	return nil
}
