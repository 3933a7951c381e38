package models

// FieldUpdate is one field-path assignment of a partial document update.
type FieldUpdate struct {
	Path  string
	Value any
}

// TicketPatch is a partial update. Nil fields are left untouched.
type TicketPatch struct {
	Street *string
	Apt    *string
	City   *string
	State  *string
	Zip    *string

	CustomerName  *string
	CustomerPhone *string
	CustomerEmail *string

	OnSite              *bool
	InspectionComplete  *bool
	RemediationRequired *bool
	EquipmentOnSite     *bool
	SiteComplete        *bool

	Photos          *[]PhotoRef
	RemediationData *RemediationData

	// AppendPhotos and RemovePhotos edit the photo lists as stored when the
	// update is written, so concurrent edits do not overwrite each other.
	// RemovePhotos also drops matching photos from every room.
	AppendPhotos []PhotoRef
	RemovePhotos []PhotoRef

	PDFURL         *string
	PDFDownloadURL *string
	PDFStoragePath *string
}

func (p TicketPatch) touchesPhotos() bool {
	return p.Photos != nil || len(p.AppendPhotos) > 0 || len(p.RemovePhotos) > 0
}

func (p TicketPatch) touchesAddress() bool {
	return p.Street != nil || p.Apt != nil || p.City != nil || p.State != nil || p.Zip != nil
}

// Apply merges the patch into a copy of t and returns the copy.
func (p TicketPatch) Apply(t Ticket) Ticket {
	out := t.Clone()
	setString(&out.Street, p.Street)
	setString(&out.Apt, p.Apt)
	setString(&out.City, p.City)
	setString(&out.State, p.State)
	setString(&out.Zip, p.Zip)
	if p.touchesAddress() {
		out.Address = ComposeAddress(out.Street, out.Apt, out.City, out.State, out.Zip)
	}
	setString(&out.CustomerName, p.CustomerName)
	setString(&out.CustomerPhone, p.CustomerPhone)
	setString(&out.CustomerEmail, p.CustomerEmail)

	setBool(&out.OnSite, p.OnSite)
	setBool(&out.InspectionComplete, p.InspectionComplete)
	setBool(&out.RemediationRequired, p.RemediationRequired)
	setBool(&out.EquipmentOnSite, p.EquipmentOnSite)
	setBool(&out.SiteComplete, p.SiteComplete)

	if p.Photos != nil {
		out.Photos = clonePhotos(*p.Photos)
		if out.Photos == nil {
			out.Photos = []PhotoRef{}
		}
	}
	if p.RemediationData != nil {
		rd := p.RemediationData.Clone()
		out.RemediationData = &rd
	}
	if len(p.AppendPhotos) > 0 {
		out.Photos = append(clonePhotos(out.Photos), p.AppendPhotos...)
	}
	if len(p.RemovePhotos) > 0 {
		out.Photos = withoutPhotos(out.Photos, p.RemovePhotos)
		if out.RemediationData != nil {
			for i := range out.RemediationData.Rooms {
				room := &out.RemediationData.Rooms[i]
				if room.Photos != nil {
					room.Photos = withoutPhotos(room.Photos, p.RemovePhotos)
				}
			}
		}
	}
	if p.touchesPhotos() && out.Photos == nil {
		out.Photos = []PhotoRef{}
	}
	setString(&out.PDFURL, p.PDFURL)
	setString(&out.PDFDownloadURL, p.PDFDownloadURL)
	setString(&out.PDFStoragePath, p.PDFStoragePath)
	return out
}

// Updates lists the field paths the patch writes, in a stable order. An
// address change also rewrites the composed address, which needs the
// current value of the untouched parts, so it is computed against base.
func (p TicketPatch) Updates(base Ticket) []FieldUpdate {
	var u []FieldUpdate
	addString := func(path string, v *string) {
		if v != nil {
			u = append(u, FieldUpdate{Path: path, Value: *v})
		}
	}
	addBool := func(path string, v *bool) {
		if v != nil {
			u = append(u, FieldUpdate{Path: path, Value: *v})
		}
	}
	addString("street", p.Street)
	addString("apt", p.Apt)
	addString("city", p.City)
	addString("state", p.State)
	addString("zip", p.Zip)
	if p.touchesAddress() {
		u = append(u, FieldUpdate{Path: "address", Value: p.Apply(base).Address})
	}
	addString("customerName", p.CustomerName)
	addString("customerPhone", p.CustomerPhone)
	addString("customerEmail", p.CustomerEmail)
	addBool("onSite", p.OnSite)
	addBool("inspectionComplete", p.InspectionComplete)
	addBool("remediationRequired", p.RemediationRequired)
	addBool("equipmentOnSite", p.EquipmentOnSite)
	addBool("siteComplete", p.SiteComplete)
	if p.touchesPhotos() {
		applied := p.Apply(base)
		u = append(u, FieldUpdate{Path: "photos", Value: applied.Photos})
		if applied.RemediationData != nil && (p.RemediationData != nil || len(p.RemovePhotos) > 0) {
			u = append(u, FieldUpdate{Path: "remediationData", Value: applied.RemediationData.Clone()})
		}
	} else if p.RemediationData != nil {
		u = append(u, FieldUpdate{Path: "remediationData", Value: p.RemediationData.Clone()})
	}
	addString("pdfUrl", p.PDFURL)
	addString("pdfDownloadURL", p.PDFDownloadURL)
	addString("pdfStoragePath", p.PDFStoragePath)
	return u
}

func (p TicketPatch) IsEmpty() bool {
	return len(p.Updates(Ticket{})) == 0
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// String and Bool return pointers for building patches inline.
func String(v string) *string { return &v }
func Bool(v bool) *bool       { return &v }
