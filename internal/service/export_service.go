package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"stage-planner/internal/model"
	"stage-planner/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail  = errors.New("échec de la génération du fichier")
	ErrInvalidExportFormat = errors.New("format d'export invalide (pdf ou xlsx)")
	ErrInvalidExportGroup  = errors.New("groupe invalide (tous, artistes ou techniques)")
)

// 导出格式
const (
	ExportFormatPDF  = "pdf"
	ExportFormatXLSX = "xlsx"

	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

const groupeTous = "tous"

// ExportFile 导出结果，由 Handler 层设置响应头后写出
type ExportFile struct {
	Buf         *bytes.Buffer
	Filename    string
	ContentType string
}

// ExportService 导出业务接口
type ExportService interface {
	// FeuilleDeRoute 按分组导出时间线与部门信息栏
	FeuilleDeRoute(ctx context.Context, actor *Actor, eventID, groupe, format string) (*ExportFile, error)
	// Team 导出分配名单及最近回复
	Team(ctx context.Context, actor *Actor, eventID string) (*ExportFile, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// FeuilleDeRoute: 时间线（按分组过滤）+ 部门信息栏
// ═══════════════════════════════════════════════════════════

func (s *exportService) FeuilleDeRoute(ctx context.Context, actor *Actor, eventID, groupe, format string) (*ExportFile, error) {
	if groupe == "" {
		groupe = groupeTous
	}
	if groupe != groupeTous && !model.IsValidPlanningGroup(groupe) {
		return nil, ErrInvalidExportGroup
	}
	if format == "" {
		format = ExportFormatPDF
	}
	if format != ExportFormatPDF && format != ExportFormatXLSX {
		return nil, ErrInvalidExportFormat
	}

	// 1. 访问校验
	event, err := loadEvent(ctx, s.repo, s.logger, eventID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.repo.Assignment.ListByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("查询分配失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}
	if err := canViewEvent(actor, event, assignments); err != nil {
		return nil, err
	}

	// 2. 数据
	planning, err := s.repo.Planning.ListByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("查询时间线失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}
	planning = filterPlanning(planning, groupe)

	fields, err := s.repo.Information.ListByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("查询信息栏失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}
	sortInformation(fields)

	// 3. 渲染
	base := fmt.Sprintf("feuille-de-route_%s_%s", slugify(event.NomEvenement), groupe)
	var buf *bytes.Buffer
	if format == ExportFormatPDF {
		buf, err = renderFeuilleDeRoutePDF(event, planning, fields, groupe)
	} else {
		buf, err = renderFeuilleDeRouteXLSX(event, planning, fields, groupe)
	}
	if err != nil {
		s.logger.Error("生成导出文件失败", zap.String("event_id", eventID), zap.String("format", format), zap.Error(err))
		return nil, ErrExportGenerateFail
	}

	file := &ExportFile{Buf: buf, Filename: base + "." + format, ContentType: ContentTypePDF}
	if format == ExportFormatXLSX {
		file.ContentType = ContentTypeXLSX
	}
	return file, nil
}

// ────────────────────── Team ──────────────────────

func (s *exportService) Team(ctx context.Context, actor *Actor, eventID string) (*ExportFile, error) {
	event, err := loadOwnedEvent(ctx, s.repo, s.logger, actor, eventID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.repo.Assignment.ListByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("查询分配失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}
	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.ID)
	}
	replies, err := s.repo.Response.LatestByAssignments(ctx, ids)
	if err != nil {
		s.logger.Error("查询最近回复失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Équipe"
	idx, _ := f.NewSheet(sheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheet, "A1", event.NomEvenement)
	f.MergeCell(sheet, "A1", "G1")

	headers := []string{"Nom", "Prénom", "Email", "Spécialité", "Statut", "Dernière réponse", "Commentaire"}
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheet, "A2", cell(colName(len(headers)-1), 2), headerStyle)
	for i, w := range []float64{18, 18, 28, 18, 16, 20, 40} {
		f.SetColWidth(sheet, colName(i), colName(i), w)
	}

	row := 3
	for _, a := range assignments {
		if a.Intermittent != nil {
			f.SetCellValue(sheet, cell("A", row), a.Intermittent.Nom)
			f.SetCellValue(sheet, cell("B", row), a.Intermittent.Prenom)
			f.SetCellValue(sheet, cell("C", row), a.Intermittent.Email)
			f.SetCellValue(sheet, cell("D", row), derefString(a.Intermittent.Specialite))
		}
		f.SetCellValue(sheet, cell("E", row), statusLabel(a.StatutDisponibilite))
		if reply, ok := replies[a.ID]; ok {
			f.SetCellValue(sheet, cell("F", row), responseLabel(reply.ResponseType))
			f.SetCellValue(sheet, cell("G", row), derefString(reply.Comment))
		} else {
			f.SetCellValue(sheet, cell("F", row), "-")
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, ErrExportGenerateFail
	}

	return &ExportFile{
		Buf:         buf,
		Filename:    fmt.Sprintf("equipe_%s.xlsx", slugify(event.NomEvenement)),
		ContentType: ContentTypeXLSX,
	}, nil
}

// ── 渲染 ──

func renderFeuilleDeRoutePDF(event *model.Event, planning []model.PlanningItem, fields []model.InformationField, groupe string) (*bytes.Buffer, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr("Feuille de route - "+event.NomEvenement))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Du %s au %s", event.DateDebut.Format("02/01/2006 15:04"), event.DateFin.Format("02/01/2006 15:04"))))
	pdf.Ln(6)
	if event.Lieu != nil {
		pdf.Cell(0, 6, tr("Lieu : "+*event.Lieu))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, tr("Groupe : "+groupLabel(groupe)))
	pdf.Ln(10)

	// 时间线
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Planning")
	pdf.Ln(8)

	widths := []float64{25, 125, 40}
	pdf.SetFont("Arial", "B", 10)
	for i, h := range []string{"Heure", "Intitulé", "Groupe"} {
		pdf.CellFormat(widths[i], 7, tr(h), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	if len(planning) == 0 {
		pdf.CellFormat(widths[0]+widths[1]+widths[2], 6, tr("Aucun élément"), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
	for _, it := range planning {
		pdf.CellFormat(widths[0], 6, tr(it.Heure), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 6, tr(it.Intitule), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, tr(groupLabel(it.Groupe)), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	// 部门信息栏
	if len(fields) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, tr("Informations par département"))
		pdf.Ln(8)
		for _, f := range fields {
			pdf.SetFont("Arial", "B", 10)
			pdf.Cell(0, 6, tr(infoFieldLabel(f.TypeChamp)))
			pdf.Ln(6)
			pdf.SetFont("Arial", "", 10)
			if f.ContenuTexte != nil {
				pdf.MultiCell(0, 5, tr(*f.ContenuTexte), "", "L", false)
			}
			if f.Lien != nil {
				pdf.MultiCell(0, 5, tr("Document : "+*f.Lien), "", "L", false)
			}
			pdf.Ln(2)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return &buf, nil
}

func renderFeuilleDeRouteXLSX(event *model.Event, planning []model.PlanningItem, fields []model.InformationField, groupe string) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Planning"
	idx, _ := f.NewSheet(sheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})

	f.SetCellValue(sheet, "A1", event.NomEvenement)
	f.MergeCell(sheet, "A1", "C1")
	f.SetCellValue(sheet, "A2", fmt.Sprintf("Du %s au %s", event.DateDebut.Format("02/01/2006 15:04"), event.DateFin.Format("02/01/2006 15:04")))
	f.SetCellValue(sheet, "A3", "Groupe : "+groupLabel(groupe))

	f.SetCellValue(sheet, "A5", "Heure")
	f.SetCellValue(sheet, "B5", "Intitulé")
	f.SetCellValue(sheet, "C5", "Groupe")
	f.SetCellStyle(sheet, "A5", "C5", headerStyle)
	f.SetColWidth(sheet, "A", "A", 10)
	f.SetColWidth(sheet, "B", "B", 50)
	f.SetColWidth(sheet, "C", "C", 14)

	row := 6
	for _, it := range planning {
		f.SetCellValue(sheet, cell("A", row), it.Heure)
		f.SetCellValue(sheet, cell("B", row), it.Intitule)
		f.SetCellValue(sheet, cell("C", row), groupLabel(it.Groupe))
		row++
	}

	if len(fields) > 0 {
		info := "Informations"
		f.NewSheet(info)
		f.SetCellValue(info, "A1", "Département")
		f.SetCellValue(info, "B1", "Contenu")
		f.SetCellValue(info, "C1", "Document")
		f.SetCellStyle(info, "A1", "C1", headerStyle)
		f.SetColWidth(info, "A", "A", 14)
		f.SetColWidth(info, "B", "B", 60)
		f.SetColWidth(info, "C", "C", 40)
		for i, field := range fields {
			r := i + 2
			f.SetCellValue(info, cell("A", r), infoFieldLabel(field.TypeChamp))
			f.SetCellValue(info, cell("B", r), derefString(field.ContenuTexte))
			f.SetCellValue(info, cell("C", r), derefString(field.Lien))
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func groupLabel(g string) string {
	switch g {
	case model.PlanningGroupArtistes:
		return "Artistes"
	case model.PlanningGroupTechniques:
		return "Techniques"
	}
	return "Tous"
}

func infoFieldLabel(t string) string {
	switch t {
	case model.InfoFieldSon:
		return "Son"
	case model.InfoFieldLumiere:
		return "Lumière"
	case model.InfoFieldPlateau:
		return "Plateau"
	}
	return "Général"
}

func statusLabel(s model.AvailabilityStatus) string {
	switch s {
	case model.StatusPropose:
		return "Proposé"
	case model.StatusDisponible:
		return "Disponible"
	case model.StatusIncertain:
		return "Incertain"
	case model.StatusNonDisponible:
		return "Non disponible"
	case model.StatusValide:
		return "Validé"
	case model.StatusNonRetenu:
		return "Non retenu"
	}
	return string(s)
}

func responseLabel(r model.ResponseType) string {
	switch r {
	case model.ResponseAccept:
		return "Accepté"
	case model.ResponseRefuse:
		return "Refusé"
	case model.ResponseProposeAlternative:
		return "Autres dates proposées"
	}
	return string(r)
}

// 法语省音撇号视作分词符：d'été → d-ete
var elisionReplacer = strings.NewReplacer("'", " ", "’", " ")

// slugify 文件名用
func slugify(s string) string {
	out := slug.Make(elisionReplacer.Replace(s))
	if out == "" {
		return "evenement"
	}
	return out
}
