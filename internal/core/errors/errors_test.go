package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "target not found")
		if err.Error() != "[NOT_FOUND] target not found" {
			t.Errorf("expected [NOT_FOUND] target not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("exit status 2")
		err := Wrap(original, CodeRecipeFailed, "recipe failed")
		expected := "[RECIPE_FAILED] recipe failed: exit status 2"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected wrapped error to unwrap to original")
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeParse, "invalid character")
		if !IsCode(err, CodeParse) {
			t.Error("expected IsCode to return true for CodeParse")
		}
		if IsCode(err, CodeAborted) {
			t.Error("expected IsCode to return false for CodeAborted")
		}
	})

	t.Run("IsCodeThroughFmtWrap", func(t *testing.T) {
		err := fmt.Errorf("load: %w", New(CodeDuplicateRecipe, "multiple recipes"))
		if !IsCode(err, CodeDuplicateRecipe) {
			t.Error("expected IsCode to see through fmt.Errorf wrapping")
		}
		if CodeOf(err) != CodeDuplicateRecipe {
			t.Errorf("expected CodeOf to be DUPLICATE_RECIPE, got %s", CodeOf(err))
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := AddContext(New(CodeParse, "multiple colons"), CtxLine, 3)
		if err.Error() != "[PARSE_ERROR] multiple colons map[line:3]" {
			t.Errorf("unexpected message %q", err.Error())
		}

		plain := AddContext(errors.New("boom"), CtxPath, "Makefile.mymake")
		if !IsCode(plain, CodeInternal) {
			t.Error("expected plain errors to be wrapped as internal")
		}
	})

	t.Run("MessageOf", func(t *testing.T) {
		err := Wrap(errors.New("inner"), CodeNoRule, "No rule to build util.o")
		if MessageOf(err) != "No rule to build util.o" {
			t.Errorf("unexpected message %q", MessageOf(err))
		}
		if MessageOf(errors.New("plain")) != "plain" {
			t.Error("expected plain error text")
		}
	})
}
