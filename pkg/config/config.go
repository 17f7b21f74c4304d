package config

// Load builds a manager over the file at configPath with the augment and
// browser sections registered and loaded.
func Load(configPath string) (*Manager, error) {
	store, err := NewFileStore(configPath)
	if err != nil {
		return nil, err
	}

	manager, err := newManager(store)
	if err != nil {
		return nil, err
	}
	if err := manager.LoadAll(); err != nil {
		return nil, err
	}
	return manager, nil
}

// Defaults builds a manager holding the default settings over the file at
// configPath without reading it, so SaveAll replaces whatever is there,
// unreadable files included.
func Defaults(configPath string) (*Manager, error) {
	store, err := openFileStore(configPath)
	if err != nil {
		return nil, err
	}
	return newManager(store)
}

func newManager(store Store) (*Manager, error) {
	manager := NewManager(store)
	if err := manager.RegisterSection(NewAugmentSection()); err != nil {
		return nil, err
	}
	if err := manager.RegisterSection(NewBrowserSection()); err != nil {
		return nil, err
	}
	return manager, nil
}
