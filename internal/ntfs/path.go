package ntfs

// namespacePriority ranks $FILE_NAME namespaces for path resolution: when a
// file has both a DOS short name and a WIN32 (or WIN32_DOS combined) long
// name, the long name wins. Order, low to high: DOS, WIN32_DOS, POSIX, WIN32.
var namespacePriority = map[uint8]int{
	NamespaceDOS:      0,
	NamespaceWin32DOS: 1,
	NamespacePOSIX:    2,
	NamespaceWin32:    3,
}

// bestFilename picks the highest-priority namespace's $FILE_NAME attribute
// among a directory record's candidates.
func bestFilename(fns []FilenameAttribute) (FilenameAttribute, bool) {
	if len(fns) == 0 {
		return FilenameAttribute{}, false
	}
	best := fns[0]
	bestPriority := namespacePriority[best.Namespace]
	for _, fn := range fns[1:] {
		if p := namespacePriority[fn.Namespace]; p > bestPriority {
			best = fn
			bestPriority = p
		}
	}
	return best, true
}

// orphanSuffix marks a path segment that couldn't be resolved: its parent
// directory record is missing, has no usable $FILE_NAME attribute, or the
// parent chain cycles back on itself.
const orphanSuffix = "/$Orphan"

// unknownParentPath is used when a slack entry's directory context can't be
// established at all.
const unknownParentPath = "<Unknown>"

// resolvePath reconstructs key's full path by walking its $FILE_NAME
// parent-reference chain up to the root, memoizing every path it computes
// and refusing to loop forever on a cyclic chain.
func (w *Walker) resolvePath(key FileReference) string {
	if key == RootReference {
		return w.cfg.MountPoint
	}
	if cached, ok := w.pathCache[key]; ok {
		return w.cfg.MountPoint + cached
	}

	var suffix string
	visited := make(map[FileReference]bool)
	current := key

	for current != RootReference {
		if cached, ok := w.pathCache[current]; ok {
			suffix = cached + suffix
			break
		}
		if visited[current] {
			suffix = orphanSuffix + suffix
			break
		}
		visited[current] = true

		dir, ok := w.mftMap[current]
		if !ok {
			suffix = orphanSuffix + suffix
			break
		}
		fn, ok := bestFilename(dir.filenames)
		if !ok {
			suffix = orphanSuffix + suffix
			break
		}

		suffix = "/" + fn.Filename + suffix
		current = fn.ParentReference
	}

	w.pathCache[key] = suffix
	return w.cfg.MountPoint + suffix
}

// parentPathForEntry computes the path an entry's enclosing directory should
// be reported under. Live entries always use the directory being walked.
// Slack entries prefer their own embedded parent reference when it resolves
// to a known directory (more authoritative, since the surviving bytes may
// predate a rename or move), falling back to the enclosing directory and
// finally to an explicit "unknown" marker.
func (w *Walker) parentPathForEntry(dirKey FileReference, e carvedEntry) string {
	if !e.IsSlack {
		return w.resolvePath(dirKey)
	}
	if _, ok := w.mftMap[e.Filename.ParentReference]; ok {
		return w.resolvePath(e.Filename.ParentReference)
	}
	if _, ok := w.mftMap[dirKey]; ok {
		return w.resolvePath(dirKey)
	}
	return unknownParentPath
}
