package studio

import (
	"errors"
	"fmt"

	"github.com/Rana718/Portal/internal/apperrors"
	"github.com/Rana718/Portal/internal/types"
	"github.com/gofiber/fiber/v2"
)

func statusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	switch apperrors.GetClass(err) {
	case apperrors.ErrClassNotFound, apperrors.ErrClassConfig:
		return fiber.StatusNotFound
	case apperrors.ErrClassValidation:
		return fiber.StatusUnprocessableEntity
	case apperrors.ErrClassPermission:
		return fiber.StatusForbidden
	}
	return fiber.StatusInternalServerError
}

func detailOf(err error) string {
	var ce *apperrors.ClassifiedError
	if errors.As(err, &ce) {
		if ce.Detail != "" {
			return ce.Detail
		}
		if ce.Err != nil {
			return ce.Err.Error()
		}
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}

// errorHandler renders every failure as {"detail": ...}.
func errorHandler(c *fiber.Ctx, err error) error {
	return c.Status(statusOf(err)).JSON(types.ErrorBody{Detail: detailOf(err)})
}

func intParam(c *fiber.Ctx, name string) (int, error) {
	v, err := c.ParamsInt(name)
	if err != nil {
		return 0, apperrors.New(apperrors.ErrClassValidation, "parse path", fmt.Sprintf("%s must be an integer", name))
	}
	return v, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.New(apperrors.ErrClassValidation, "parse body", "invalid request body: "+err.Error())
	}
	return nil
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	forms := s.service.cat.Forms()
	out := make([]fiber.Map, 0, len(forms))
	for _, f := range forms {
		out = append(out, fiber.Map{"form_id": f.ID, "name": f.Name, "main_widget_id": f.MainWidget})
	}
	return c.JSON(fiber.Map{"name": "portal studio", "forms": out})
}

func (s *Server) handleGetForm(c *fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	form, err := s.service.Form(id)
	if err != nil {
		return err
	}
	return c.JSON(form)
}

func (s *Server) handleGetWidget(c *fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	widget, err := s.service.Widget(id)
	if err != nil {
		return err
	}
	return c.JSON(widget)
}

func (s *Server) handleGetReferences(c *fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	groups, err := s.service.References(id)
	if err != nil {
		return err
	}
	return c.JSON(groups)
}

func (s *Server) handleGetTableQueries(c *fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	queries, err := s.service.TableQueries(id)
	if err != nil {
		return err
	}
	return c.JSON(queries)
}

func (s *Server) handleCombobox(c *fiber.Ctx) error {
	form, err := intParam(c, "form")
	if err != nil {
		return err
	}
	wc, err := intParam(c, "wc")
	if err != nil {
		return err
	}
	tc, err := intParam(c, "tc")
	if err != nil {
		return err
	}
	options, err := s.service.Combobox(c.UserContext(), form, wc, tc)
	if err != nil {
		return err
	}
	return c.JSON(options)
}

func (s *Server) handleDisplayMain(c *fiber.Ctx) error {
	form, err := intParam(c, "form")
	if err != nil {
		return err
	}
	var filters []types.Filter
	if len(c.Body()) > 0 {
		if err := parseBody(c, &filters); err != nil {
			return err
		}
	}
	resp, err := s.service.DisplayMain(c.UserContext(), form, filters, c.QueryInt("page", 1), c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (s *Server) handleDisplaySub(c *fiber.Ctx) error {
	form, err := intParam(c, "form")
	if err != nil {
		return err
	}
	sub := c.QueryInt("sub_widget_id", 0)
	if sub == 0 {
		return apperrors.New(apperrors.ErrClassValidation, "display sub", "sub_widget_id is required")
	}
	var body types.PK
	if err := parseBody(c, &body); err != nil {
		return err
	}
	resp, err := s.service.DisplaySub(c.UserContext(), form, sub, body.PrimaryKeys, c.QueryInt("page", 1), c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// handleDisplayTree answers a single level as an object and anything else as a list.
func (s *Server) handleDisplayTree(c *fiber.Ctx) error {
	form, err := intParam(c, "form")
	if err != nil {
		return err
	}
	var filters []types.Filter
	if len(c.Body()) > 0 {
		if err := parseBody(c, &filters); err != nil {
			return err
		}
	}
	levels, err := s.service.Tree(c.UserContext(), form, filters)
	if err != nil {
		return err
	}
	if len(levels) == 1 {
		return c.JSON(levels[0])
	}
	return c.JSON(levels)
}

func (s *Server) mutationIDs(c *fiber.Ctx) (int, int, error) {
	form, err := intParam(c, "form")
	if err != nil {
		return 0, 0, err
	}
	widget, err := intParam(c, "widget")
	if err != nil {
		return 0, 0, err
	}
	return form, widget, nil
}

func (s *Server) handleInsert(c *fiber.Ctx) error {
	form, widget, err := s.mutationIDs(c)
	if err != nil {
		return err
	}
	var req types.MutationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := s.service.Insert(c.UserContext(), form, widget, req); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleUpdate(c *fiber.Ctx) error {
	form, widget, err := s.mutationIDs(c)
	if err != nil {
		return err
	}
	var req types.MutationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := s.service.Update(c.UserContext(), form, widget, req); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleDelete(c *fiber.Ctx) error {
	form, widget, err := s.mutationIDs(c)
	if err != nil {
		return err
	}
	var body types.PK
	if err := parseBody(c, &body); err != nil {
		return err
	}
	if err := s.service.Delete(c.UserContext(), form, widget, body.PrimaryKeys); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleCreateReference(c *fiber.Ctx) error {
	wc, err := intParam(c, "wc")
	if err != nil {
		return err
	}
	tc, err := intParam(c, "tc")
	if err != nil {
		return err
	}
	var body struct {
		Order int `json:"ref_column_order"`
	}
	if err := parseBody(c, &body); err != nil {
		return err
	}
	if err := s.service.CreateReference(wc, tc, body.Order); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleUpdateReference(c *fiber.Ctx) error {
	wc, err := intParam(c, "wc")
	if err != nil {
		return err
	}
	tc, err := intParam(c, "tc")
	if err != nil {
		return err
	}
	var patch types.ReferencePatch
	if err := parseBody(c, &patch); err != nil {
		return err
	}
	if err := s.service.UpdateReference(wc, tc, patch); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
