package checkpoint

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCheckpointManager(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tempDir)

	key := "MS4wLjABAAAAtest"

	t.Run("CreateAndLoad", func(t *testing.T) {
		mgr, err := NewManager(key)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cp, err := mgr.Create("https://www.douyin.com/user/"+key, key)
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}
		if cp.SecUserID != key {
			t.Errorf("Expected sec_user_id %s, got %s", key, cp.SecUserID)
		}
		if cp.Version != CurrentVersion {
			t.Errorf("Expected version %d, got %d", CurrentVersion, cp.Version)
		}

		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load checkpoint: %v", err)
		}
		if loaded == nil {
			t.Fatal("Expected checkpoint, got nil")
		}
		if loaded.Seen == nil {
			t.Error("Expected Seen map to be initialised")
		}

		if runtime.GOOS != "darwin" && runtime.GOOS != "windows" {
			want := filepath.Join(tempDir, "dyscraper", "checkpoints", key+".checkpoint.json")
			if mgr.Path() != want {
				t.Errorf("Expected path %s, got %s", want, mgr.Path())
			}
		}
	})

	t.Run("RecordDownload", func(t *testing.T) {
		mgr, err := NewManagerInDir(t.TempDir(), key)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		cp, err := mgr.Create("p", key)
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		if err := mgr.StartRun(cp, "run-1", "api"); err != nil {
			t.Fatalf("StartRun failed: %v", err)
		}
		if err := mgr.RecordDownload(cp, "id:7301", "7301_a.mp4"); err != nil {
			t.Fatalf("RecordDownload failed: %v", err)
		}
		// Recording the same key again must not inflate the total.
		if err := mgr.RecordDownload(cp, "id:7301", "7301_a.mp4"); err != nil {
			t.Fatalf("RecordDownload failed: %v", err)
		}

		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load checkpoint: %v", err)
		}
		if !loaded.IsSeen("id:7301") {
			t.Error("Expected id:7301 to be seen")
		}
		if loaded.IsSeen("id:7302") {
			t.Error("Expected id:7302 not to be seen")
		}
		if loaded.TotalDownloaded != 1 {
			t.Errorf("Expected 1 download, got %d", loaded.TotalDownloaded)
		}
		if loaded.Runs != 1 || loaded.Mode != "api" || loaded.RunID != "run-1" {
			t.Errorf("Unexpected run stamp: %+v", loaded)
		}
	})

	t.Run("LoadOrCreateAndDelete", func(t *testing.T) {
		mgr, err := NewManagerInDir(t.TempDir(), key)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if mgr.Exists() {
			t.Fatal("Expected no checkpoint yet")
		}

		cp, err := mgr.LoadOrCreate("p", key)
		if err != nil {
			t.Fatalf("LoadOrCreate failed: %v", err)
		}
		if err := mgr.RecordDownload(cp, "url:https://v.test/a.mp4", "a.mp4"); err != nil {
			t.Fatalf("RecordDownload failed: %v", err)
		}

		again, err := mgr.LoadOrCreate("p", key)
		if err != nil {
			t.Fatalf("LoadOrCreate failed: %v", err)
		}
		if again.TotalDownloaded != 1 {
			t.Errorf("Expected existing checkpoint, got %+v", again)
		}

		if err := mgr.Backup(); err != nil {
			t.Fatalf("Backup failed: %v", err)
		}
		if _, err := os.Stat(mgr.Path() + ".backup"); err != nil {
			t.Errorf("Expected backup file: %v", err)
		}

		if err := mgr.Delete(); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if mgr.Exists() {
			t.Error("Expected checkpoint to be gone")
		}
		if err := mgr.Delete(); err != nil {
			t.Errorf("Deleting twice should be fine: %v", err)
		}

		loaded, err := mgr.Load()
		if err != nil || loaded != nil {
			t.Errorf("Expected nil, nil after delete, got %v, %v", loaded, err)
		}
	})

	t.Run("GetInfo", func(t *testing.T) {
		mgr, err := NewManagerInDir(t.TempDir(), key)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		info, err := mgr.GetInfo()
		if err != nil || info != nil {
			t.Fatalf("Expected no info, got %v, %v", info, err)
		}

		cp, _ := mgr.Create("p", key)
		_ = mgr.StartRun(cp, "r", "hover")
		info, err = mgr.GetInfo()
		if err != nil {
			t.Fatalf("GetInfo failed: %v", err)
		}
		if info.LastMode != "hover" || info.Runs != 1 {
			t.Errorf("Unexpected info: %+v", info)
		}
	})

	t.Run("CorruptFile", func(t *testing.T) {
		dir := t.TempDir()
		mgr, err := NewManagerInDir(dir, key)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if err := os.WriteFile(mgr.Path(), []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := mgr.Load(); err == nil {
			t.Error("Expected decode error")
		}
	})

	t.Run("EmptyKey", func(t *testing.T) {
		if _, err := NewManagerInDir(t.TempDir(), ""); err == nil {
			t.Error("Expected error for empty key")
		}
	})
}
