package render

// Vertex shader. Applies the orthographic projection to the display-space
// position and forwards texture coordinate and color. Attribute locations
// match the drawlist.Vertex layout bound by the device's vertex arrays.
const vertexShaderSource = `
#version 430 core
layout (location = 0) in vec2 Position;
layout (location = 1) in vec2 UV;
layout (location = 2) in vec4 Color;

uniform mat4 ProjMtx;

out vec2 Frag_UV;
out vec4 Frag_Color;

void main() {
    Frag_UV = UV;
    Frag_Color = Color;
    gl_Position = ProjMtx * vec4(Position.xy, 0.0, 1.0);
}
`

// Fragment shader. Modulates the vertex color with the bound texture; solid
// fills sample the font atlas' white texel.
const fragmentShaderSource = `
#version 430 core
in vec2 Frag_UV;
in vec4 Frag_Color;

layout (location = 0) out vec4 Out_Color;

uniform sampler2D Texture;

void main() {
    Out_Color = Frag_Color * texture(Texture, Frag_UV.st);
}
`
