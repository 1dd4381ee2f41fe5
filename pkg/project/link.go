package project

// LinkConnections resolves the connection reference of every culling
// component. A stored index wins when it is in range and points at a
// Custom2DField connection; otherwise the stored ID is looked up. A
// reference that resolves neither way is cleared. No connection is ever
// created.
func (p *PartProject) LinkConnections() {
	conns := p.Connections.Items()
	for _, s := range p.Surfaces.Items() {
		for _, comp := range s.Components.Items() {
			if !comp.IsCulling() {
				continue
			}
			var linked *PartConnection
			if i := comp.ConnectionIndex; i >= 0 && i < len(conns) && conns[i].ConnectorType == ConnectorCustom2DField {
				linked = conns[i]
			}
			if linked == nil && comp.ConnectionID != "" {
				for _, c := range conns {
					if c.ID == comp.ConnectionID {
						linked = c
						break
					}
				}
			}
			if linked == nil {
				comp.ConnectionID = ""
				comp.ConnectionIndex = -1
				continue
			}
			comp.ConnectionID = linked.ID
			comp.ConnectionIndex = p.Connections.IndexOf(linked)
		}
	}
}

// LinkedConnection returns the connection a culling component refers to.
func (p *PartProject) LinkedConnection(comp *SurfaceComponent) *PartConnection {
	if comp.ConnectionID == "" {
		return nil
	}
	if i := comp.ConnectionIndex; i >= 0 && i < p.Connections.Len() {
		if c := p.Connections.At(i); c.ID == comp.ConnectionID {
			return c
		}
	}
	e, ok := p.FindByID(comp.ConnectionID)
	if !ok {
		return nil
	}
	c, _ := e.(*PartConnection)
	return c
}
