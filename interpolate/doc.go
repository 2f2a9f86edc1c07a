/*package interpolate provides separable interpolators over values sampled on
rectilinear lattices.

A Grid stores one scalar per lattice point and combines the surrounding
nodes with a per-axis kernel (Nearest, Linear or Cubic). Queries outside the
lattice's bounding box evaluate to NaN rather than extrapolating.
*/
package interpolate
