package composer

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"manutencao-predial/portal-backend/internal/apperr"
)

var validate = validator.New()

// Validate rejects a report that cannot be rendered, before any page is
// drawn. It checks the deduplicated service list.
func Validate(r *Report, skin Skin, services []Service) error {
	grouping := skin.groupingFor(r.Config)

	if grouping == ByPhase {
		if strings.TrimSpace(r.Title) == "" {
			return apperr.Validation("workName", "nome da obra é obrigatório")
		}
	} else if len(services) == 0 {
		return apperr.Validation("services", "informe ao menos um serviço")
	}

	for i, s := range services {
		if err := validate.Struct(s); err != nil || strings.TrimSpace(s.Name) == "" {
			return apperr.Validation(fmt.Sprintf("services[%d].name", i), "nome do serviço é obrigatório")
		}
	}

	if len(r.Images) == 0 {
		return apperr.Validation("images", "envie ao menos uma imagem")
	}

	perService := make(map[string]int)
	for i, img := range r.Images {
		if err := validate.Struct(img); err != nil {
			return apperr.Validation(fmt.Sprintf("image_%d_phase", i),
				fmt.Sprintf("fase inválida %q: use antes, durante ou depois", img.Phase))
		}
		perService[img.ServiceID]++
	}

	if grouping == ByService {
		for _, s := range services {
			if perService[s.ID] > skin.MaxImagesPerService {
				return apperr.Validation("images", fmt.Sprintf(
					"o serviço %q tem %d imagens; o limite é %d", s.Name, perService[s.ID], skin.MaxImagesPerService))
			}
		}
	} else if len(r.Images) > skin.MaxImagesPerService {
		return apperr.Validation("images", fmt.Sprintf(
			"%d imagens enviadas; o limite é %d", len(r.Images), skin.MaxImagesPerService))
	}

	if !skin.Has(SectionFlowcharts) && len(r.Flowcharts) > 0 {
		return apperr.Validation("flowchartsCount", "este modelo não aceita fluxogramas")
	}
	return nil
}
