package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func resetState() {
	CloseAll()
	optsMu.Lock()
	opts = Options{}
	optsMu.Unlock()
}

// TestAllCategoriesLog tests that all categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	home := t.TempDir()
	resetState()
	defer resetState()

	if err := Initialize(home, Options{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if !IsDebugMode() {
		t.Fatal("Expected debug mode to be enabled")
	}

	categories := []Category{
		CategoryBoot,
		CategorySession,
		CategoryConfig,
		CategoryPerception,
		CategoryContext,
		CategoryLearning,
		CategoryPipeline,
		CategoryTactile,
		CategoryStore,
	}

	for _, cat := range categories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be enabled", cat)
		}
		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
		logger.Warn("Test warn message for %s", cat)
		logger.Error("Test error message for %s", cat)
	}

	Pipeline("Convenience pipeline log")
	Perception("Convenience perception log")

	CloseAll()

	logsPath := filepath.Join(home, "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}

	for _, cat := range categories {
		found := false
		for _, entry := range entries {
			if !strings.HasSuffix(entry.Name(), "_"+string(cat)+".log") {
				continue
			}
			found = true
			content, err := os.ReadFile(filepath.Join(logsPath, entry.Name()))
			if err != nil {
				t.Errorf("Failed to read log file for %s: %v", cat, err)
				break
			}
			if !strings.Contains(string(content), "Test info message for "+string(cat)) {
				t.Errorf("Log file for %s is missing the info line: %q", cat, content)
			}
			break
		}
		if !found {
			t.Errorf("No log file found for category: %s", cat)
		}
	}
}

// TestDebugModeDisabled tests that no logs are created when debug_mode is false
func TestDebugModeDisabled(t *testing.T) {
	home := t.TempDir()
	resetState()
	defer resetState()

	if err := Initialize(home, Options{DebugMode: false}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	Boot("should not be written")
	Get(CategoryPipeline).Error("should not be written either")

	if _, err := os.Stat(filepath.Join(home, "logs")); !os.IsNotExist(err) {
		t.Errorf("logs directory should not exist in production mode, stat err = %v", err)
	}
}

func TestCategoryFilter(t *testing.T) {
	home := t.TempDir()
	resetState()
	defer resetState()

	err := Initialize(home, Options{
		DebugMode:  true,
		Categories: map[string]bool{"tactile": false},
	})
	if err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if IsCategoryEnabled(CategoryTactile) {
		t.Error("tactile should be disabled by the category filter")
	}
	if !IsCategoryEnabled(CategoryPipeline) {
		t.Error("unlisted categories should default to enabled")
	}
}

func TestInitializeRequiresHome(t *testing.T) {
	if err := Initialize("", Options{}); err == nil {
		t.Fatal("expected error for empty home")
	}
}
