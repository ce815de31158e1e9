package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-org-slim/pkg/domain"
)

// FindingKind names a partial-failure leftover.
type FindingKind string

const (
	// FindingMissingAdmin is an organization whose admin was never linked.
	FindingMissingAdmin FindingKind = "missing_admin"
	// FindingDanglingAdmin is an organization linked to an admin that does not exist.
	FindingDanglingAdmin FindingKind = "dangling_admin"
	// FindingAdminMismatch is an organization linked to another organization's admin.
	FindingAdminMismatch FindingKind = "admin_mismatch"
	// FindingMissingCollection is an organization whose tenant collection is gone.
	FindingMissingCollection FindingKind = "missing_collection"
	// FindingOrphanCollection is a tenant collection no organization owns.
	FindingOrphanCollection FindingKind = "orphan_collection"
	// FindingOrphanAdmin is an admin whose organization does not exist.
	FindingOrphanAdmin FindingKind = "orphan_admin"
)

// Finding is one inconsistency reported by Audit.
type Finding struct {
	Kind           FindingKind `json:"kind"`
	OrganizationID *uuid.UUID  `json:"organization_id,omitempty"`
	Organization   string      `json:"organization,omitempty"`
	AdminID        *uuid.UUID  `json:"admin_id,omitempty"`
	Collection     string      `json:"collection,omitempty"`
	Detail         string      `json:"detail"`
}

// AuditReport is the result of Audit.
type AuditReport struct {
	Organizations int       `json:"organizations"`
	Admins        int       `json:"admins"`
	Collections   int       `json:"collections"`
	Findings      []Finding `json:"findings"`
}

// Clean returns true if no inconsistency was found.
func (r *AuditReport) Clean() bool {
	return len(r.Findings) == 0
}

// Audit cross-checks organizations, admins and tenant collections and reports
// every leftover of an interrupted or uncompensated operation. It writes
// nothing.
func (m *Manager) Audit(ctx context.Context) (report *AuditReport, err error) {
	start := time.Now()
	defer func() { m.observe(OpAudit, start, err) }()

	orgs, err := m.orgs.List(ctx)
	if err != nil {
		return nil, err
	}
	admins, err := m.admins.List(ctx)
	if err != nil {
		return nil, err
	}
	collections, err := m.tenants.List(ctx)
	if err != nil {
		return nil, err
	}

	report = &AuditReport{
		Organizations: len(orgs),
		Admins:        len(admins),
		Collections:   len(collections),
		Findings:      []Finding{},
	}

	adminsByID := make(map[uuid.UUID]*domain.Admin, len(admins))
	for _, a := range admins {
		adminsByID[a.ID] = a
	}
	orgsByID := make(map[uuid.UUID]*domain.Organization, len(orgs))
	owned := make(map[string]bool, len(orgs))
	for _, o := range orgs {
		orgsByID[o.ID] = o
		owned[o.CollectionName] = true
	}
	existing := make(map[string]bool, len(collections))
	for _, c := range collections {
		existing[c] = true
	}

	for _, o := range orgs {
		id := o.ID
		finding := Finding{OrganizationID: &id, Organization: o.Name, Collection: o.CollectionName}

		switch {
		case !o.HasAdmin():
			f := finding
			f.Kind = FindingMissingAdmin
			f.Detail = "organization has no linked admin"
			report.Findings = append(report.Findings, f)
		case adminsByID[*o.AdminID] == nil:
			f := finding
			f.Kind = FindingDanglingAdmin
			f.AdminID = o.AdminID
			f.Detail = fmt.Sprintf("linked admin %s does not exist", o.AdminID)
			report.Findings = append(report.Findings, f)
		case adminsByID[*o.AdminID].OrganizationID != o.ID:
			f := finding
			f.Kind = FindingAdminMismatch
			f.AdminID = o.AdminID
			f.Detail = fmt.Sprintf("linked admin belongs to organization %s", adminsByID[*o.AdminID].OrganizationID)
			report.Findings = append(report.Findings, f)
		}

		if !existing[o.CollectionName] {
			f := finding
			f.Kind = FindingMissingCollection
			f.Detail = "tenant collection does not exist"
			report.Findings = append(report.Findings, f)
		}
	}

	for _, c := range collections {
		if !owned[c] {
			report.Findings = append(report.Findings, Finding{
				Kind:       FindingOrphanCollection,
				Collection: c,
				Detail:     "no organization owns this collection",
			})
		}
	}

	for _, a := range admins {
		if orgsByID[a.OrganizationID] == nil {
			id := a.ID
			report.Findings = append(report.Findings, Finding{
				Kind:    FindingOrphanAdmin,
				AdminID: &id,
				Detail:  fmt.Sprintf("organization %s does not exist", a.OrganizationID),
			})
		}
	}

	sort.SliceStable(report.Findings, func(i, j int) bool {
		return report.Findings[i].Kind < report.Findings[j].Kind
	})

	if !report.Clean() {
		m.logger.Warn("audit found inconsistencies", "operation", OpAudit, "findings", len(report.Findings))
	}
	return report, nil
}
