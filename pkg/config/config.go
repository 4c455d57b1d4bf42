package config

// Load creates a manager over the file at configPath (DefaultPath when
// empty), registers the browser and server sections and loads them.
func Load(configPath string) (*Manager, error) {
	store, err := NewFileStore(configPath)
	if err != nil {
		return nil, err
	}

	manager := NewManager(store)
	if err := manager.RegisterSection(NewBrowserSection()); err != nil {
		return nil, err
	}
	if err := manager.RegisterSection(NewServerSection()); err != nil {
		return nil, err
	}

	if err := manager.LoadAll(); err != nil {
		return nil, err
	}
	return manager, nil
}

// Browser returns the browser section of m.
func (m *Manager) Browser() *BrowserSection {
	section, ok := m.GetSection(SectionIDBrowser)
	if !ok {
		return NewBrowserSection()
	}
	if browser, ok := section.(*BrowserSection); ok {
		return browser
	}
	return NewBrowserSection()
}

// Server returns the server section of m.
func (m *Manager) Server() *ServerSection {
	section, ok := m.GetSection(SectionIDServer)
	if !ok {
		return NewServerSection()
	}
	if server, ok := section.(*ServerSection); ok {
		return server
	}
	return NewServerSection()
}
