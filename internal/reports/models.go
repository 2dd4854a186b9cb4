package reports

import (
	"time"

	"manutencao-predial/portal-backend/internal/reports/composer"
	"manutencao-predial/portal-backend/internal/reports/layout"
)

// SkinInfo describes a report skin to clients
type SkinInfo struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Orientation   layout.Orientation `json:"orientation"`
	PhotosPerPage int                `json:"photos_per_page"`
	Grouping      composer.Grouping  `json:"grouping"`
	Sections      []composer.Section `json:"sections"`
	MaxImages     int                `json:"max_images_per_service"`
}

func newSkinInfo(s composer.Skin) SkinInfo {
	return SkinInfo{
		ID:            s.ID,
		Name:          s.Name,
		Orientation:   s.Orientation,
		PhotosPerPage: s.PhotosPerPage,
		Grouping:      s.Grouping,
		Sections:      s.Sections,
		MaxImages:     s.MaxImagesPerService,
	}
}

// Generated is a composed report plus where it was archived, if anywhere
type Generated struct {
	*composer.Result
	ArchiveKey string
}

// PresignResponse is returned by the archive presign endpoint
type PresignResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Multipart field names of a report request
const (
	fieldServices            = "services"
	fieldConfig              = "config"
	fieldLocation            = "location"
	fieldCompany             = "company"
	fieldAddress             = "address"
	fieldDate                = "date"
	fieldStartTime           = "startTime"
	fieldEndTime             = "endTime"
	fieldReportName          = "reportName"
	fieldReportDescription   = "reportDescription"
	fieldDescription         = "description"
	fieldFinalConsiderations = "finalConsiderations"
	fieldWorkName            = "workName"
	fieldWorkDate            = "workDate"
	fieldFlowchartsCount     = "flowchartsCount"
	fieldResultImage         = "resultImage"
	fieldTermsImage          = "termsImage"
	fieldIntroductionTitle   = "introductionTitle"
)
