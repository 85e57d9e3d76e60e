package planner

import (
	"errors"
	"reflect"
	"testing"

	"github.com/yuya-takeyama/strict-fs-sync/pkg/snapshot"
)

func rec(root, rel string, size uint64, hash string) snapshot.FileRecord {
	return snapshot.FileRecord{
		FullPath:     root + "/" + rel,
		RelativePath: rel,
		Size:         size,
		ContentHash:  hash,
	}
}

func keys(refs []ItemRef) []string {
	out := []string{}
	for _, r := range refs {
		out = append(out, r.Key)
	}
	return out
}

func TestPhase1Compare(t *testing.T) {
	tests := []struct {
		name         string
		source       []snapshot.FileRecord
		dest         []snapshot.FileRecord
		newItems     []string
		deletedItems []string
		sizeMismatch []string
		needChecksum []string
		identical    []string
	}{
		{
			name: "all new files",
			source: []snapshot.FileRecord{
				rec("/s", "file2.txt", 200, ""),
				rec("/s", "file1.txt", 100, ""),
			},
			newItems:     []string{"file1.txt", "file2.txt"},
			deletedItems: []string{},
			sizeMismatch: []string{},
			needChecksum: []string{},
			identical:    []string{},
		},
		{
			name: "destination only files are deleted",
			dest: []snapshot.FileRecord{
				rec("/d", "file1.txt", 100, ""),
			},
			newItems:     []string{},
			deletedItems: []string{"file1.txt"},
			sizeMismatch: []string{},
			needChecksum: []string{},
			identical:    []string{},
		},
		{
			name:         "size mismatch",
			source:       []snapshot.FileRecord{rec("/s", "file1.txt", 100, "")},
			dest:         []snapshot.FileRecord{rec("/d", "file1.txt", 200, "")},
			newItems:     []string{},
			deletedItems: []string{},
			sizeMismatch: []string{"file1.txt"},
			needChecksum: []string{},
			identical:    []string{},
		},
		{
			name:         "equal size without hashes needs checksum",
			source:       []snapshot.FileRecord{rec("/s", "file1.txt", 100, "")},
			dest:         []snapshot.FileRecord{rec("/d", "file1.txt", 100, "")},
			newItems:     []string{},
			deletedItems: []string{},
			sizeMismatch: []string{},
			needChecksum: []string{"file1.txt"},
			identical:    []string{},
		},
		{
			name:         "known equal hashes are identical",
			source:       []snapshot.FileRecord{rec("/s", "file1.txt", 100, "cbf43926")},
			dest:         []snapshot.FileRecord{rec("/d", "file1.txt", 100, "cbf43926")},
			newItems:     []string{},
			deletedItems: []string{},
			sizeMismatch: []string{},
			needChecksum: []string{},
			identical:    []string{"file1.txt"},
		},
		{
			name:         "keys compare case-insensitively",
			source:       []snapshot.FileRecord{rec("/s", "Docs/README.md", 10, "")},
			dest:         []snapshot.FileRecord{rec("/d", "docs/readme.md", 10, "")},
			newItems:     []string{},
			deletedItems: []string{},
			sizeMismatch: []string{},
			needChecksum: []string{"docs/readme.md"},
			identical:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Phase1Compare(tt.source, tt.dest)

			checks := []struct {
				bucket string
				got    []ItemRef
				want   []string
			}{
				{"NewItems", got.NewItems, tt.newItems},
				{"DeletedItems", got.DeletedItems, tt.deletedItems},
				{"SizeMismatch", got.SizeMismatch, tt.sizeMismatch},
				{"NeedChecksum", got.NeedChecksum, tt.needChecksum},
				{"Identical", got.Identical, tt.identical},
			}
			for _, c := range checks {
				if k := keys(c.got); !reflect.DeepEqual(k, c.want) {
					t.Errorf("%s = %v, want %v", c.bucket, k, c.want)
				}
			}
		})
	}
}

// contentHasher resolves checksums from a fixed table keyed by full path
func contentHasher(table map[string]string) Hasher {
	return func(r snapshot.FileRecord) (string, error) {
		if h, ok := table[r.FullPath]; ok {
			return h, nil
		}
		return "", errors.New("unreadable")
	}
}

func copySources(plan *Plan) []string {
	out := []string{}
	for _, item := range plan.FilesToCopy {
		out = append(out, item.Source)
	}
	return out
}

func removePaths(plan *Plan) []string {
	out := []string{}
	for _, r := range plan.FilesToRemove {
		out = append(out, r.FullPath)
	}
	return out
}

func TestDiffBasicExample(t *testing.T) {
	// source {a, b}, destination {b with identical content, c}
	source := []snapshot.FileRecord{rec("/s", "a", 1, ""), rec("/s", "b", 2, "")}
	dest := []snapshot.FileRecord{rec("/d", "b", 2, ""), rec("/d", "c", 3, "")}
	hasher := contentHasher(map[string]string{"/s/b": "11111111", "/d/b": "11111111"})

	plan := Diff("/s", "/d", source, dest, hasher)

	if got := copySources(plan); !reflect.DeepEqual(got, []string{"/s/a"}) {
		t.Errorf("FilesToCopy = %v, want [/s/a]", got)
	}
	if got := removePaths(plan); !reflect.DeepEqual(got, []string{"/d/c"}) {
		t.Errorf("FilesToRemove = %v, want [/d/c]", got)
	}
	if len(plan.FoldersToCreate) != 0 || len(plan.FoldersToRemove) != 0 {
		t.Errorf("folders = %v / %v, want none", plan.FoldersToCreate, plan.FoldersToRemove)
	}
	if plan.FilesToCopy[0].Destination != "/d/a" {
		t.Errorf("Destination = %q, want /d/a", plan.FilesToCopy[0].Destination)
	}
}

func TestDiffChangedFileIsCopiedNotRemoved(t *testing.T) {
	source := []snapshot.FileRecord{rec("/s", "x.bin", 4, "")}
	dest := []snapshot.FileRecord{rec("/d", "X.BIN", 4, "")}
	hasher := contentHasher(map[string]string{"/s/x.bin": "aaaaaaaa", "/d/X.BIN": "bbbbbbbb"})

	plan := Diff("/s", "/d", source, dest, hasher)

	if len(plan.FilesToRemove) != 0 {
		t.Errorf("FilesToRemove = %v, want none", removePaths(plan))
	}
	if len(plan.FilesToCopy) != 1 {
		t.Fatalf("FilesToCopy = %v, want one item", copySources(plan))
	}
	item := plan.FilesToCopy[0]
	if item.Destination != "/d/X.BIN" || item.Reason != "checksum differs" {
		t.Errorf("item = %+v, want existing destination spelling and checksum reason", item)
	}
}

func TestDiffHashFailureCountsAsDifferent(t *testing.T) {
	source := []snapshot.FileRecord{rec("/s", "locked.db", 8, "")}
	dest := []snapshot.FileRecord{rec("/d", "locked.db", 8, "")}

	plan := Diff("/s", "/d", source, dest, contentHasher(map[string]string{}))

	if len(plan.FilesToCopy) != 1 || plan.FilesToCopy[0].Reason != "checksum unavailable" {
		t.Errorf("FilesToCopy = %+v, want one item with checksum unavailable", plan.FilesToCopy)
	}
}

func TestDiffIdempotent(t *testing.T) {
	source := []snapshot.FileRecord{rec("/s", "a", 1, ""), rec("/s", "sub/b", 2, "")}
	dest := []snapshot.FileRecord{rec("/d", "a", 1, ""), rec("/d", "sub/b", 2, "")}
	hasher := contentHasher(map[string]string{
		"/s/a": "01", "/d/a": "01",
		"/s/sub/b": "02", "/d/sub/b": "02",
	})

	plan := Diff("/s", "/d", source, dest, hasher)

	if !plan.Empty() {
		t.Errorf("plan = %+v, want empty", plan)
	}
}

func TestPhase3Folders(t *testing.T) {
	tests := []struct {
		name       string
		source     []snapshot.FileRecord
		dest       []snapshot.FileRecord
		wantCreate []string
		wantRemove []string
	}{
		{
			name:       "missing nested directories are created parent first",
			source:     []snapshot.FileRecord{rec("/s", "x/y/f.txt", 1, "")},
			wantCreate: []string{"/d/x", "/d/x/y"},
			wantRemove: []string{},
		},
		{
			name:       "orphaned subtree is removed once at its top",
			source:     []snapshot.FileRecord{rec("/s", "keep.txt", 1, "")},
			dest:       []snapshot.FileRecord{rec("/d", "keep.txt", 1, ""), rec("/d", "old/deep/g.txt", 1, "")},
			wantCreate: []string{},
			wantRemove: []string{"/d/old"},
		},
		{
			name:       "ancestors of source directories are kept",
			source:     []snapshot.FileRecord{rec("/s", "x/y/f.txt", 1, "")},
			dest:       []snapshot.FileRecord{rec("/d", "x/g.txt", 1, "")},
			wantCreate: []string{"/d/x/y"},
			wantRemove: []string{},
		},
		{
			name:       "directory case follows each side",
			source:     []snapshot.FileRecord{rec("/s", "Photos/a.jpg", 1, ""), rec("/s", "New/b.jpg", 1, "")},
			dest:       []snapshot.FileRecord{rec("/d", "photos/a.jpg", 1, ""), rec("/d", "Stale/c.jpg", 1, "")},
			wantCreate: []string{"/d/New"},
			wantRemove: []string{"/d/Stale"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phase1 := Phase1Compare(tt.source, tt.dest)
			plan := Phase3GeneratePlan(phase1, nil, "/s", "/d")

			if !reflect.DeepEqual(plan.FoldersToCreate, tt.wantCreate) {
				t.Errorf("FoldersToCreate = %v, want %v", plan.FoldersToCreate, tt.wantCreate)
			}
			if !reflect.DeepEqual(plan.FoldersToRemove, tt.wantRemove) {
				t.Errorf("FoldersToRemove = %v, want %v", plan.FoldersToRemove, tt.wantRemove)
			}
		})
	}
}

func TestCopyPlan(t *testing.T) {
	records := []snapshot.FileRecord{
		rec("/s", "a.txt", 1, ""),
		rec("/s", "sub/b.txt", 2, ""),
		rec("/s", "sub/c.txt", 3, ""),
	}

	plan := CopyPlan("/s", "/d", records)

	wantFolders := []string{"/d", "/d/sub"}
	if !reflect.DeepEqual(plan.FoldersToCreate, wantFolders) {
		t.Errorf("FoldersToCreate = %v, want %v", plan.FoldersToCreate, wantFolders)
	}
	if got := copySources(plan); !reflect.DeepEqual(got, []string{"/s/a.txt", "/s/sub/b.txt", "/s/sub/c.txt"}) {
		t.Errorf("FilesToCopy = %v", got)
	}
	if len(plan.FilesToRemove) != 0 || len(plan.FoldersToRemove) != 0 {
		t.Error("copy plan must not remove anything")
	}
	if s := plan.Summary(); s.FilesToCopy != 3 || s.BytesToCopy != 6 || s.FoldersToCreate != 2 {
		t.Errorf("Summary() = %+v", s)
	}
}

func TestNestedDestination(t *testing.T) {
	tests := []struct {
		source string
		dest   string
		want   string
	}{
		{"/data/photos", "/backup", "/backup/photos"},
		{"/data/photos/", "/backup/", "/backup/photos"},
		{"/data/photos", "/backup/Photos", "/backup/Photos"},
		{"/data/photos", "/mnt/photos", "/mnt/photos"},
	}

	for _, tt := range tests {
		if got := NestedDestination(tt.source, tt.dest); got != tt.want {
			t.Errorf("NestedDestination(%q, %q) = %q, want %q", tt.source, tt.dest, got, tt.want)
		}
	}
}

func TestPlanItems(t *testing.T) {
	plan := &Plan{
		FoldersToCreate: []string{"/d/new"},
		FoldersToRemove: []string{"/d/old"},
		FilesToCopy:     []Item{{Action: ActionCopy, Source: "/s/new/a", Destination: "/d/new/a"}},
		FilesToRemove:   []snapshot.FileRecord{rec("/d", "gone", 1, "")},
	}

	var actions []Action
	for _, item := range plan.Items() {
		actions = append(actions, item.Action)
	}

	want := []Action{ActionMkdir, ActionDelete, ActionRmdir, ActionCopy}
	if !reflect.DeepEqual(actions, want) {
		t.Errorf("Items() actions = %v, want %v", actions, want)
	}
}
