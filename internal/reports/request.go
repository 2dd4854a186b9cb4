package reports

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"manutencao-predial/portal-backend/internal/apperr"
	"manutencao-predial/portal-backend/internal/reports/composer"
	"manutencao-predial/portal-backend/internal/reports/merge"
)

var (
	imageField        = regexp.MustCompile(`^image_(\d+)$`)
	processImageField = regexp.MustCompile(`^processImage_(\d+)$`)
	flowchartField    = regexp.MustCompile(`^flowchart_(\d+)$`)
	pdfField          = regexp.MustCompile(`^pdf-(\d+)$`)
)

type form struct {
	*multipart.Form
}

func (f form) value(keys ...string) string {
	for _, k := range keys {
		if v := f.Value[k]; len(v) > 0 && strings.TrimSpace(v[0]) != "" {
			return strings.TrimSpace(v[0])
		}
	}
	return ""
}

// indexes returns the numeric suffixes of the file fields matching re, in
// ascending order
func (f form) indexes(re *regexp.Regexp) []int {
	var out []int
	for key := range f.File {
		if m := re.FindStringSubmatch(key); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				out = append(out, n)
			}
		}
	}
	sort.Ints(out)
	return out
}

func (f form) file(key string) (*composer.Image, error) {
	headers := f.File[key]
	if len(headers) == 0 {
		return nil, nil
	}
	h := headers[0]
	rc, err := h.Open()
	if err != nil {
		return nil, apperr.Validation(key, "não foi possível ler o arquivo enviado")
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, apperr.Validation(key, "não foi possível ler o arquivo enviado")
	}
	return &composer.Image{
		Filename: h.Filename,
		MimeType: h.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// ParseReport builds a report request from a multipart form. Photos travel
// as image_{i} parts with image_{i}_serviceId, image_{i}_comment,
// image_{i}_captureDate and image_{i}_phase, or in the process layout as
// processImage_{i} with processImage{ServiceId,ServiceName,Comment,Phase,CaptureDate}_{i}.
func ParseReport(mf *multipart.Form, skin string) (*composer.Report, error) {
	f := form{mf}

	cfg, err := composer.ParseReportConfig(f.value(fieldConfig))
	if err != nil {
		return nil, apperr.Validation(fieldConfig, err.Error())
	}

	r := &composer.Report{
		Skin:                skin,
		Title:               f.value(fieldReportName, fieldWorkName),
		Description:         f.value(fieldReportDescription, fieldDescription),
		Company:             f.value(fieldCompany),
		Location:            f.value(fieldLocation),
		Address:             f.value(fieldAddress),
		Date:                f.value(fieldDate, fieldWorkDate),
		StartTime:           f.value(fieldStartTime),
		EndTime:             f.value(fieldEndTime),
		FinalConsiderations: f.value(fieldFinalConsiderations),
		Config:              cfg,
	}

	if raw := f.value(fieldServices); raw != "" {
		if err := json.Unmarshal([]byte(raw), &r.Services); err != nil {
			return nil, apperr.Validation(fieldServices, "lista de serviços inválida")
		}
	}
	names := make(map[string]string, len(r.Services))
	for _, s := range r.Services {
		if _, ok := names[s.ID]; !ok {
			names[s.ID] = s.Name
		}
	}

	for _, i := range f.indexes(imageField) {
		img, err := f.file(fmt.Sprintf("image_%d", i))
		if err != nil {
			return nil, err
		}
		prefix := fmt.Sprintf("image_%d_", i)
		img.ServiceID = f.value(prefix + "serviceId")
		img.ServiceName = names[img.ServiceID]
		img.Comment = f.value(prefix + "comment")
		img.CaptureDate = f.value(prefix + "captureDate")
		img.Phase = composer.Phase(f.value(prefix + "phase"))
		r.Images = append(r.Images, *img)
	}

	for _, i := range f.indexes(processImageField) {
		img, err := f.file(fmt.Sprintf("processImage_%d", i))
		if err != nil {
			return nil, err
		}
		suffix := fmt.Sprintf("_%d", i)
		img.ServiceID = f.value("processImageServiceId" + suffix)
		img.ServiceName = f.value("processImageServiceName" + suffix)
		if img.ServiceName == "" {
			img.ServiceName = names[img.ServiceID]
		}
		img.Comment = f.value("processImageComment" + suffix)
		img.CaptureDate = f.value("processImageCaptureDate" + suffix)
		img.Phase = composer.Phase(strings.ToLower(f.value("processImagePhase" + suffix)))
		r.Images = append(r.Images, *img)
	}

	if r.Flowcharts, err = parseFlowcharts(f); err != nil {
		return nil, err
	}

	if r.ResultImage, err = f.file(fieldResultImage); err != nil {
		return nil, err
	}
	if r.TermsImage, err = f.file(fieldTermsImage); err != nil {
		return nil, err
	}
	return r, nil
}

// parseFlowcharts honors flowchartsCount when sent; every announced part
// must then be present.
func parseFlowcharts(f form) ([]composer.Image, error) {
	indexes := f.indexes(flowchartField)
	if raw := f.value(fieldFlowchartsCount); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, apperr.Validation(fieldFlowchartsCount, "quantidade de fluxogramas inválida")
		}
		indexes = indexes[:0]
		for i := 0; i < n; i++ {
			indexes = append(indexes, i)
		}
	}

	var out []composer.Image
	for _, i := range indexes {
		key := fmt.Sprintf("flowchart_%d", i)
		img, err := f.file(key)
		if err != nil {
			return nil, err
		}
		if img == nil {
			return nil, apperr.Validation(key, "fluxograma informado não foi enviado")
		}
		img.Comment = f.value(key + "_comment")
		out = append(out, *img)
	}
	return out, nil
}

// ParseMerge reads pdf-{i} parts, their optional separationTitle-{i} and
// the optional introductionTitle.
func ParseMerge(mf *multipart.Form) ([]merge.Input, string, error) {
	f := form{mf}

	var inputs []merge.Input
	for _, i := range f.indexes(pdfField) {
		key := fmt.Sprintf("pdf-%d", i)
		doc, err := f.file(key)
		if err != nil {
			return nil, "", err
		}
		inputs = append(inputs, merge.Input{
			Name:           doc.Filename,
			PDF:            doc.Data,
			SeparatorTitle: f.value(fmt.Sprintf("separationTitle-%d", i)),
		})
	}
	if len(inputs) == 0 {
		return nil, "", apperr.Validation("pdf-0", "envie ao menos um PDF")
	}
	return inputs, f.value(fieldIntroductionTitle), nil
}
