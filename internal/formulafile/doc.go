// Package formulafile loads formula definitions written in HCL.
//
// A file declares variables, parameters and named formulas:
//
//	variable "x" {
//	  index    = 0
//	  dim      = 3
//	  category = "i"
//	}
//	variable "y" {
//	  index    = 1
//	  dim      = 3
//	  category = "j"
//	}
//	variable "b" {
//	  index    = 2
//	  dim      = 1
//	  category = "j"
//	}
//	variable "g" {
//	  index = 3
//	  dim   = 1
//	}
//	parameter "oos2" {
//	  index = 0
//	}
//	formula "k" {
//	  expr = gauss_kernel(oos2, x, y, b)
//	}
//	formula "dk" {
//	  expr = grad(k, x, g)
//	}
//
// A variable without a category is i-indexed.
//
// Formula expressions use the HCL expression syntax. References name a
// variable, a parameter, or a formula declared earlier in the file. Integer
// literals become constants; any other numeric constant must come from a
// parameter. The operators + - * / and unary - map onto Add, Subtract, Scal,
// Divide and Minus. Functions: add, subtract, scal, minus, divide, inv, pow,
// powf, square, sqrt, int_inv, exp, log, scalprod, sqnorm2, sqdist,
// gauss_kernel, zero and grad.
//
// Every dimension error is reported as an HCL diagnostic pointing at the
// offending sub-expression.
package formulafile
