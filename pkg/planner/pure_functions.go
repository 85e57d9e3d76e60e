package planner

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuya-takeyama/strict-fs-sync/internal/checksum"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/snapshot"
)

func Phase1Compare(source []snapshot.FileRecord, dest []snapshot.FileRecord) Phase1Result {
	sourceMap := make(map[string]snapshot.FileRecord)
	for _, rec := range source {
		sourceMap[rec.Key()] = rec
	}

	destMap := make(map[string]snapshot.FileRecord)
	for _, rec := range dest {
		destMap[rec.Key()] = rec
	}

	result := Phase1Result{
		NewItems:     []ItemRef{},
		DeletedItems: []ItemRef{},
		SizeMismatch: []ItemRef{},
		NeedChecksum: []ItemRef{},
		Identical:    []ItemRef{},
	}

	for key, srcRec := range sourceMap {
		destRec, exists := destMap[key]
		if !exists {
			result.NewItems = append(result.NewItems, ItemRef{Key: key, Source: srcRec})
			continue
		}

		ref := ItemRef{Key: key, Source: srcRec, Dest: destRec}
		if srcRec.Size != destRec.Size {
			result.SizeMismatch = append(result.SizeMismatch, ref)
		} else if checksum.Equal(srcRec.ContentHash, destRec.ContentHash) {
			result.Identical = append(result.Identical, ref)
		} else {
			result.NeedChecksum = append(result.NeedChecksum, ref)
		}
	}

	for key, destRec := range destMap {
		if _, exists := sourceMap[key]; !exists {
			result.DeletedItems = append(result.DeletedItems, ItemRef{Key: key, Dest: destRec})
		}
	}

	sortPhase1Result(&result)
	return result
}

// Phase3GeneratePlan turns the comparison into a sync plan. Files present on
// both sides are only ever overwritten, never removed and recreated.
func Phase3GeneratePlan(phase1 Phase1Result, checksums []ChecksumData, sourceRoot string, destRoot string) *Plan {
	plan := &Plan{
		SourceRoot:      sourceRoot,
		DestinationRoot: destRoot,
		FoldersToCreate: []string{},
		FoldersToRemove: []string{},
		FilesToCopy:     []Item{},
		FilesToRemove:   []snapshot.FileRecord{},
	}

	copyRef := func(ref ItemRef, reason string) {
		dst := ref.Dest.FullPath
		if dst == "" {
			dst = filepath.Join(destRoot, ref.Source.RelativePath)
		}
		plan.FilesToCopy = append(plan.FilesToCopy, Item{
			Action:      ActionCopy,
			Source:      ref.Source.FullPath,
			Destination: dst,
			Size:        ref.Source.Size,
			Reason:      reason,
		})
	}

	for _, ref := range phase1.NewItems {
		copyRef(ref, "new file")
	}

	for _, ref := range phase1.SizeMismatch {
		copyRef(ref, "size differs")
	}

	checksumMap := make(map[string]ChecksumData)
	for _, cs := range checksums {
		checksumMap[cs.ItemRef.Key] = cs
	}

	for _, ref := range phase1.NeedChecksum {
		cs, exists := checksumMap[ref.Key]
		switch {
		case !exists || cs.Err != nil:
			copyRef(ref, "checksum unavailable")
		case !checksum.Equal(cs.SourceChecksum, cs.DestChecksum):
			copyRef(ref, "checksum differs")
		}
	}

	for _, ref := range phase1.DeletedItems {
		plan.FilesToRemove = append(plan.FilesToRemove, ref.Dest)
	}

	sort.SliceStable(plan.FilesToCopy, func(i, j int) bool {
		return copyKey(plan.FilesToCopy[i]) < copyKey(plan.FilesToCopy[j])
	})

	plan.FoldersToCreate, plan.FoldersToRemove = planFolders(phase1, destRoot)
	return plan
}

// Diff compares two snapshots, hashing only the equal-size pairs, and
// returns the plan that makes dest mirror source.
func Diff(sourceRoot, destRoot string, source, dest []snapshot.FileRecord, hasher Hasher) *Plan {
	phase1 := Phase1Compare(source, dest)
	checksums, _ := collectChecksums(context.Background(), phase1.NeedChecksum, hasher, 1, nil)
	return Phase3GeneratePlan(phase1, checksums, sourceRoot, destRoot)
}

// CopyPlan copies every record to the same relative location under destRoot.
// Nothing is removed.
func CopyPlan(sourceRoot, destRoot string, records []snapshot.FileRecord) *Plan {
	plan := &Plan{
		SourceRoot:      sourceRoot,
		DestinationRoot: destRoot,
		FoldersToCreate: []string{},
		FoldersToRemove: []string{},
		FilesToCopy:     []Item{},
		FilesToRemove:   []snapshot.FileRecord{},
	}

	seen := make(map[string]bool)
	for _, rec := range records {
		dst := filepath.Join(destRoot, rec.RelativePath)
		plan.FilesToCopy = append(plan.FilesToCopy, Item{
			Action:      ActionCopy,
			Source:      rec.FullPath,
			Destination: dst,
			Size:        rec.Size,
			Reason:      "requested",
		})

		dir := filepath.Dir(dst)
		if key := strings.ToLower(filepath.ToSlash(dir)); !seen[key] {
			seen[key] = true
			plan.FoldersToCreate = append(plan.FoldersToCreate, dir)
		}
	}

	sort.Slice(plan.FoldersToCreate, func(i, j int) bool {
		return strings.ToLower(filepath.ToSlash(plan.FoldersToCreate[i])) < strings.ToLower(filepath.ToSlash(plan.FoldersToCreate[j]))
	})
	return plan
}

// NestedDestination returns the directory a source tree mirrors into. When
// the leaf names of the two roots differ, the source leaf is nested under
// the destination, so syncing /data/photos to /backup targets /backup/photos.
func NestedDestination(sourceRoot, destRoot string) string {
	srcLeaf := filepath.Base(snapshot.TrimRoot(sourceRoot))
	if strings.EqualFold(srcLeaf, filepath.Base(snapshot.TrimRoot(destRoot))) {
		return destRoot
	}
	return filepath.Join(destRoot, srcLeaf)
}

func planFolders(phase1 Phase1Result, destRoot string) (toCreate []string, toRemove []string) {
	sourceDirs := make(map[string]string)
	destDirs := make(map[string]string)

	for _, refs := range [][]ItemRef{phase1.NewItems, phase1.SizeMismatch, phase1.NeedChecksum, phase1.Identical} {
		for _, ref := range refs {
			addAncestors(sourceDirs, ref.Source.RelativePath)
		}
	}
	for _, refs := range [][]ItemRef{phase1.DeletedItems, phase1.SizeMismatch, phase1.NeedChecksum, phase1.Identical} {
		for _, ref := range refs {
			addAncestors(destDirs, ref.Dest.RelativePath)
		}
	}

	createKeys := []string{}
	for key := range sourceDirs {
		if _, exists := destDirs[key]; !exists {
			createKeys = append(createKeys, key)
		}
	}

	removeKeys := []string{}
	for key := range destDirs {
		if _, needed := sourceDirs[key]; needed {
			continue
		}
		// removal is recursive, so a parent being removed covers this one
		if parent := parentKey(key); parent != "" {
			if _, needed := sourceDirs[parent]; !needed {
				continue
			}
		}
		removeKeys = append(removeKeys, key)
	}

	sort.Strings(createKeys)
	sort.Strings(removeKeys)

	toCreate = []string{}
	for _, key := range createKeys {
		toCreate = append(toCreate, filepath.Join(destRoot, sourceDirs[key]))
	}
	toRemove = []string{}
	for _, key := range removeKeys {
		toRemove = append(toRemove, filepath.Join(destRoot, destDirs[key]))
	}
	return toCreate, toRemove
}

// addAncestors records every directory above relPath, keyed like snapshot
// keys and mapped to its relative path as spelled on disk. The root itself
// is never recorded.
func addAncestors(dirs map[string]string, relPath string) {
	for dir := filepath.Dir(relPath); dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
		key := snapshot.KeyOf(dir)
		if _, exists := dirs[key]; exists {
			return
		}
		dirs[key] = dir
	}
}

func parentKey(key string) string {
	idx := strings.LastIndex(key, "/")
	if idx < 0 {
		return ""
	}
	return key[:idx]
}

func copyKey(item Item) string {
	return strings.ToLower(filepath.ToSlash(item.Destination))
}

func sortPhase1Result(result *Phase1Result) {
	sortItemRefs := func(refs []ItemRef) {
		sort.Slice(refs, func(i, j int) bool {
			return refs[i].Key < refs[j].Key
		})
	}

	sortItemRefs(result.NewItems)
	sortItemRefs(result.DeletedItems)
	sortItemRefs(result.SizeMismatch)
	sortItemRefs(result.NeedChecksum)
	sortItemRefs(result.Identical)
}
