package settings

// hookContains reports whether the hook array for hookType already holds
// the exact command string.
func hookContains(doc map[string]any, hookType, command string) bool {
	hooks, ok := doc["hooks"].(map[string]any)
	if !ok {
		return false
	}
	arr, ok := hooks[hookType].([]any)
	if !ok {
		return false
	}
	for _, entry := range arr {
		if s, ok := entry.(string); ok && s == command {
			return true
		}
	}
	return false
}

// HookUpdate builds a merge fragment that adds command under hookType.
func HookUpdate(hookType, command string) map[string]any {
	return map[string]any{
		"hooks": map[string]any{
			hookType: []any{command},
		},
	}
}

// RemoveHookCommand removes the exact command string from the hook array,
// deleting the array when it becomes empty and the hooks map when it holds
// no hook types anymore. Entries added by other tools are left alone.
// Returns true if the document was modified.
func RemoveHookCommand(doc map[string]any, hookType, command string) bool {
	hooks, ok := doc["hooks"].(map[string]any)
	if !ok {
		return false
	}
	arr, ok := hooks[hookType].([]any)
	if !ok {
		return false
	}

	kept := make([]any, 0, len(arr))
	removed := false
	for _, entry := range arr {
		if s, isStr := entry.(string); isStr && s == command {
			removed = true
			continue
		}
		kept = append(kept, entry)
	}
	if !removed {
		return false
	}

	if len(kept) == 0 {
		delete(hooks, hookType)
	} else {
		hooks[hookType] = kept
	}
	if len(hooks) == 0 {
		delete(doc, "hooks")
	}
	return true
}
