package incremental

const versionDescriptor = "version"

// VersionChanged reports whether current differs from the recorded tool version.
// A first run counts as changed.
func VersionChanged(h *HashStore, current string) (bool, error) {
	stored, ok, err := h.GetString(versionDescriptor)
	if err != nil {
		return false, err
	}
	return !ok || stored != current, nil
}

// CheckVersion records current as the tool version and reports whether it differs
// from the previously recorded one.
func CheckVersion(h *HashStore, current string) (bool, error) {
	changed, err := VersionChanged(h, current)
	if err != nil || !changed {
		return false, err
	}
	if err := h.PutString(versionDescriptor, current); err != nil {
		return true, err
	}
	h.logger.Info("Regenerating for new version", "version", current)
	return true, nil
}
